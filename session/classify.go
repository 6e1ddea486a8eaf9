package session

import (
	"errors"

	"github.com/peridot-sh/afm/model"
	"github.com/peridot-sh/afm/tool"
)

// Category is the user-facing class of a failure. It drives messaging only,
// never retry decisions.
type Category int

const (
	// CategoryGeneration covers runtime-reported generation failures and
	// non-conformant structured output.
	CategoryGeneration Category = iota
	// CategoryTool covers failures of a bound tool during a call.
	CategoryTool
	// CategoryUnexpected covers everything else.
	CategoryUnexpected
)

func (c Category) String() string {
	switch c {
	case CategoryGeneration:
		return "generation error"
	case CategoryTool:
		return "tool error"
	default:
		return "unexpected error"
	}
}

// Classified pairs a failure category with its user-facing message.
type Classified struct {
	Category Category
	Message  string
}

// Classify maps a failure into a user-facing category by its declared kind.
// Anything unrecognized becomes CategoryUnexpected with the underlying
// description.
func Classify(err error) Classified {
	var genErr *model.GenerationError
	var decErr *DecodeError
	var toolErr *tool.InvocationError

	switch {
	case errors.As(err, &toolErr):
		return Classified{Category: CategoryTool, Message: toolErr.Error()}
	case errors.As(err, &genErr):
		return Classified{Category: CategoryGeneration, Message: genErr.Error()}
	case errors.As(err, &decErr):
		return Classified{Category: CategoryGeneration, Message: decErr.Error()}
	default:
		return Classified{Category: CategoryUnexpected, Message: err.Error()}
	}
}
