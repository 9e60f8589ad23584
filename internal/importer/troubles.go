package importer

import (
	"fmt"

	"github.com/ladlehq/ladle/internal/http/gemini"
	"github.com/ladlehq/ladle/internal/http/mealie"
	"github.com/ladlehq/ladle/internal/ytdlp"
)

type (
	TroubleType int

	// UpstreamDetail is the flattened form of an upstream HTTP failure,
	// preserved for diagnostics when a store call is rejected.
	UpstreamDetail struct {
		Status int    `json:"status"`
		Data   string `json:"data"`
	}

	// Trouble is a classified, terminal pipeline failure. It wraps the
	// originating error and carries whatever diagnostic context the
	// failed stage had available.
	Trouble struct {
		error
		tType TroubleType

		// rawModelOutput holds the model's response text when the
		// pipeline failed after the LLM stage had produced output
		rawModelOutput string

		// upstream is non-nil when the underlying failure was a
		// non-success HTTP response from the recipe store
		upstream *UpstreamDetail
	}

	UserNotFoundError    struct{ UserID int }
	DuplicateRecipeError struct{ SourceURL string }
)

const (
	USER_NOT_FOUND TroubleType = iota
	DUPLICATE_RECIPE
	METADATA_FAILURE
	LLM_FAILURE
	EXTRACTION_FAILURE
	STORE_FAILURE
	GENERIC_FAILURE
)

// newTrouble classifies an error raised by one of the pipeline's external
// collaborators. Every collaborator error variant maps to exactly one
// trouble type; anything unrecognised is a generic failure.
func newTrouble(err error, rawModelOutput string) *Trouble {
	trouble := &Trouble{error: err, tType: GENERIC_FAILURE, rawModelOutput: rawModelOutput}

	switch err := err.(type) {
	case *UserNotFoundError:
		trouble.tType = USER_NOT_FOUND
	case *DuplicateRecipeError:
		trouble.tType = DUPLICATE_RECIPE
	case *ytdlp.ExecutionError, *ytdlp.OutputParseError:
		trouble.tType = METADATA_FAILURE
	case *gemini.FailedRequestError, *gemini.UnknownRequestError, *gemini.EmptyResponseError:
		trouble.tType = LLM_FAILURE
	case *gemini.ExtractionError:
		trouble.tType = EXTRACTION_FAILURE
	case *mealie.FailedRequestError:
		trouble.tType = STORE_FAILURE
		trouble.upstream = &UpstreamDetail{Status: err.HttpCode, Data: err.Body}
	case *mealie.UnknownRequestError:
		trouble.tType = STORE_FAILURE
	}

	return trouble
}

func (t *Trouble) Type() TroubleType         { return t.tType }
func (t *Trouble) RawModelOutput() string    { return t.rawModelOutput }
func (t *Trouble) Upstream() *UpstreamDetail { return t.upstream }

func (t TroubleType) String() string {
	switch t {
	case USER_NOT_FOUND:
		return fmt.Sprintf("USER_NOT_FOUND[%d]", t)
	case DUPLICATE_RECIPE:
		return fmt.Sprintf("DUPLICATE_RECIPE[%d]", t)
	case METADATA_FAILURE:
		return fmt.Sprintf("METADATA_FAILURE[%d]", t)
	case LLM_FAILURE:
		return fmt.Sprintf("LLM_FAILURE[%d]", t)
	case EXTRACTION_FAILURE:
		return fmt.Sprintf("EXTRACTION_FAILURE[%d]", t)
	case STORE_FAILURE:
		return fmt.Sprintf("STORE_FAILURE[%d]", t)
	default:
		return fmt.Sprintf("UNKNOWN[%d]", t)
	}
}

func (err *UserNotFoundError) Error() string {
	return fmt.Sprintf("no recipe store is configured for user %d", err.UserID)
}
func (err *DuplicateRecipeError) Error() string {
	return fmt.Sprintf("a recipe imported from %s already exists", err.SourceURL)
}
