package cerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(Storage, "failed to reach vector store", base)

	require.Equal(t, "[STORAGE] failed to reach vector store: connection refused", err.Error())
	require.Equal(t, base, err.Unwrap())
	require.True(t, Is(err, Storage))
	require.False(t, Is(err, Embedding))
}

func TestExitCodes(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 1, ExitCode(New(EmptyQuery, "query must not be empty")))
	require.Equal(t, 1, ExitCode(New(ProjectNotFound, "no such project")))
	require.Equal(t, 2, ExitCode(New(Storage, "upsert failed")))
	require.Equal(t, 2, ExitCode(errors.New("plain error")))
}

func TestSuggestNames(t *testing.T) {
	known := []string{"ecommerce-api", "ecommerce-web", "billing-service"}
	suggestions := SuggestNames("ecommerc", known, 5)
	require.Len(t, suggestions, 3)
	require.Contains(t, suggestions[:2], "ecommerce-api")
	require.Contains(t, suggestions[:2], "ecommerce-web")
}

func TestNewProjectNotFoundCapsSuggestions(t *testing.T) {
	known := []string{"a1", "a2", "a3", "a4", "a5", "a6"}
	err := NewProjectNotFound("a0", known)
	details, ok := err.Details.(map[string]interface{})
	require.True(t, ok)
	suggestions, ok := details["suggestions"].([]string)
	require.True(t, ok)
	require.LessOrEqual(t, len(suggestions), MaxSuggestions)
}
