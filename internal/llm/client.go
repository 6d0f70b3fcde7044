// Package llm wraps the model providers behind one narrow contract: system
// instructions plus user content in, raw text out. Stages parse the text as
// JSON themselves and treat any call or parse failure as a stage failure.
package llm

import (
	"context"
)

type Client interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
