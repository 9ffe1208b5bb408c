package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMaskCredentials verifies passwords are blanked in every element
// shape they ride in, prefixed or not, before anything is archived.
func TestMaskCredentials(t *testing.T) {
	in := []byte(`<login><clID>REGISTRAR-X</clID><pw>hunter22</pw><newPW>hunter23</newPW></login>` +
		`<domain:authInfo><domain:pw>secret42</domain:pw></domain:authInfo>`)

	out := string(MaskCredentials(in))

	assert.NotContains(t, out, "hunter22")
	assert.NotContains(t, out, "hunter23")
	assert.NotContains(t, out, "secret42")
	assert.Contains(t, out, "<pw>********</pw>")
	assert.Contains(t, out, "<newPW>********</newPW>")
	assert.Contains(t, out, "<domain:pw>********</domain:pw>")
	assert.Contains(t, out, "REGISTRAR-X", "non-secret content stays intact")
}

func TestMaskCredentialsLeavesEmptyElements(t *testing.T) {
	in := []byte(`<domain:authInfo><domain:pw/></domain:authInfo>`)
	assert.Equal(t, string(in), string(MaskCredentials(in)))
}
