package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	assert.Equal(t, "Claim", T("en", "claim_action"))
	assert.Equal(t, "Reclamar", T("es", "claim_action"))

	// unknown language falls back to English
	assert.Equal(t, "Claim", T("fr", "claim_action"))

	// unknown key degrades to the key itself
	assert.Equal(t, "no_such_key", T("en", "no_such_key"))
}

func TestF(t *testing.T) {
	got := F("es", "claimed_by", "Ana")
	assert.Equal(t, "Reclamado por Ana", got)
}
