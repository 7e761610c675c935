package commands

import (
	"context"
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-locsync/internal/domain"
)

func TestWrapErrorCodes(t *testing.T) {
	cases := []struct {
		stage stage
		err   error
		cat   goerrors.Category
		code  string
	}{
		{stageValidate, errors.New("bad"), goerrors.CategoryValidation, TextCodeValidation},
		{stageContext, context.Canceled, goerrors.CategoryCommand, TextCodeContextCancel},
		{stageExecute, context.DeadlineExceeded, goerrors.CategoryCommand, TextCodeContextTimeout},
		{stageContext, errors.New("odd"), goerrors.CategoryCommand, TextCodeContextError},
		{stageExecute, errors.New("boom"), goerrors.CategoryCommand, TextCodeExecuteFailed},
	}
	for _, tc := range cases {
		err := wrapError(tc.stage, tc.err)
		if !goerrors.IsCategory(err, tc.cat) || !domain.HasTextCode(err, tc.code) {
			t.Fatalf("stage %d, %v: expected %s/%s, got %v", tc.stage, tc.err, tc.cat, tc.code, err)
		}
		if !errors.Is(err, tc.err) {
			t.Fatalf("expected source error to stay in the chain for %v", tc.err)
		}
	}
	if wrapError(stageExecute, nil) != nil {
		t.Fatal("expected nil to stay nil")
	}
}
