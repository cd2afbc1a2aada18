package audits

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_OverlongTermErrorStaysValidUTF8(t *testing.T) {
	// 1 + 79*2 bytes puts the truncation point inside a rune
	term := "a" + strings.Repeat("é", 79)
	req := AuditRequest{
		Query:     "best x",
		Brand:     "Acme",
		Aliases:   []string{term},
		Providers: []ProviderID{"p1"},
	}

	err := req.Validate()
	require.ErrorIs(t, err, ErrValidation)
	assert.True(t, utf8.ValidString(err.Error()))
}
