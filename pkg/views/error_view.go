package views

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/predictor"
)

type ErrorKind string

const (
	// ErrorKindServer: the backend answered with an error status or an unusable body.
	ErrorKindServer ErrorKind = "server"
	// ErrorKindUnreachable: the backend could not be reached or read.
	ErrorKindUnreachable ErrorKind = "unreachable"
)

type Section string

const (
	SectionPrediction Section = "prediction"
	SectionAnalysis   Section = "analysis"
	SectionInsights   Section = "insights"
)

// ErrorView is the inline error banner shown in place of a result.
type ErrorView struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	StatusCode int       `json:"statusCode,omitempty"`
}

// NewErrorView maps a client failure to the banner of the given section.
func NewErrorView(section Section, err error) ErrorView {
	var se *predictor.ServerError
	if errors.As(err, &se) {
		return ErrorView{Kind: ErrorKindServer, Message: serverMessage(section, se), StatusCode: se.StatusCode}
	}

	msg := err.Error()
	var te *predictor.TransportError
	if errors.As(err, &te) {
		msg = te.Message()
	}
	return ErrorView{Kind: ErrorKindUnreachable, Message: unreachableMessage(section, msg)}
}

func serverMessage(section Section, se *predictor.ServerError) string {
	switch section {
	case SectionAnalysis:
		return "Failed to load analysis data."
	case SectionInsights:
		return "Failed to load explainability data."
	}
	if se.Malformed() {
		return fmt.Sprintf("⚠️ API Error: %s - %s", predictor.ReasonMalformedResponse, strings.TrimSpace(se.Body))
	}
	return fmt.Sprintf("⚠️ API Error: %d - %s", se.StatusCode, se.BodyText())
}

func unreachableMessage(section Section, msg string) string {
	switch section {
	case SectionAnalysis:
		return "❌ Unable to fetch analysis: " + msg
	case SectionInsights:
		return "❌ Unable to fetch explainability: " + msg
	}
	return "❌ Unable to connect to backend: " + msg
}
