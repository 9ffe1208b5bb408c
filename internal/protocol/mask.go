package protocol

import "regexp"

var secretElements = regexp.MustCompile(`(<(?:[A-Za-z]+:)?(?:pw|newPW)>)[^<]*(</(?:[A-Za-z]+:)?(?:pw|newPW)>)`)

// MaskCredentials blanks password and auth-code element text so request
// documents can appear in logs and stored diagnostics.
func MaskCredentials(body []byte) []byte {
	return secretElements.ReplaceAll(body, []byte("${1}********${2}"))
}
