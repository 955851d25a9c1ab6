package pacs

import (
	"errors"
	"fmt"
)

// Kind classifies an archive outcome for display.
type Kind int

const (
	KindOK Kind = iota
	KindNoResults
	KindServerError
	KindUnreachable
	KindParseError
	KindNotFound
)

const (
	MsgNoResults   = "There are no search results for these search parameters. Please change your parameters and try again."
	MsgUnreachable = "Unable to reach the server. Please try again later or contact your system administrator."
	MsgParse       = "Unable to parse data from server. Please report this to your system administrator."
	MsgNotFound    = "The requested study could not be found on the server."
)

// MsgServerError formats the message for an archive HTTP error.
func MsgServerError(status int) string {
	return fmt.Sprintf("The server sent back an error: %d. Please report this to your system administrator.", status)
}

// Classify maps an error from this package onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindOK
	}
	var (
		se *ServerError
		te *TransportError
		pe *ParseError
	)
	switch {
	case errors.Is(err, ErrStudyNotFound):
		return KindNotFound
	case errors.As(err, &se):
		return KindServerError
	case errors.As(err, &te):
		return KindUnreachable
	case errors.As(err, &pe):
		return KindParseError
	default:
		return KindUnreachable
	}
}

// Describe returns the user-facing text for err.
func Describe(err error) string {
	switch Classify(err) {
	case KindOK:
		return ""
	case KindNotFound:
		return MsgNotFound
	case KindServerError:
		var se *ServerError
		errors.As(err, &se)
		return MsgServerError(se.StatusCode)
	case KindParseError:
		return MsgParse
	default:
		return MsgUnreachable
	}
}
