// Package classifier provides the emergency and scope classifiers used by
// the conversation gate. Both implement driven.Classifier, so pattern-based
// and model-based variants are interchangeable behind the same port.
package classifier
