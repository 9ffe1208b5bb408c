package protocol

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"eppclient/pkg/errors"
)

type TreeSuite struct {
	suite.Suite
}

func TestTreeSuite(t *testing.T) {
	suite.Run(t, new(TreeSuite))
}

// TestParseShapes verifies the three element forms: plain string leaf,
// attribute-carrying leaf and nested map with repeated children.
func (s *TreeSuite) TestParseShapes() {
	body := []byte(`<?xml version="1.0"?>
<epp xmlns="urn:ietf:params:xml:ns:epp-1.0">
  <response>
    <result code="1000"><msg>Command completed successfully</msg></result>
    <resData>
      <domain:chkData xmlns:domain="urn:ietf:params:xml:ns:domain-1.0">
        <domain:cd><domain:name avail="1">a.it</domain:name></domain:cd>
        <domain:cd><domain:name avail="0">b.it</domain:name></domain:cd>
      </domain:chkData>
    </resData>
  </response>
</epp>`)

	tree, err := ParseTree(body)
	s.Require().NoError(err)

	res := asMap(asMap(tree["epp"])["response"])
	s.Require().NotNil(res)

	result := asMap(res["result"])
	s.Equal("1000", attr(result, "code"))
	s.Equal("Command completed successfully", text(result["msg"]))

	chk := asMap(asMap(res["resData"])["domain:chkData"])
	s.Require().NotNil(chk, "namespaced elements carry the derived short key")

	cds := asList(chk["domain:cd"])
	s.Require().Len(cds, 2, "repeated siblings become a list")
	name := asMap(asMap(cds[0])["domain:name"])
	s.Equal("a.it", text(name))
	s.Equal("1", attr(name, "avail"))
}

func (s *TreeSuite) TestParseErrors() {
	cases := []struct {
		name string
		body string
	}{
		{"empty document", ""},
		{"two roots", "<epp/><epp/>"},
		{"truncated", "<epp><response>"},
	}
	for _, c := range cases {
		s.Run(c.name, func() {
			_, err := ParseTree([]byte(c.body))
			s.Require().Error(err)
			s.Equal(errors.CodeDecode, errors.CodeOf(err))
		})
	}
}

// TestLocalizeKeys verifies prefix stripping recurses through maps and
// lists without mutating the input tree.
func (s *TreeSuite) TestLocalizeKeys() {
	in := map[string]any{
		"domain:infData": map[string]any{
			"domain:name": "x.it",
			"domain:ns":   []any{map[string]any{"domain:hostName": "ns1.x.it"}},
		},
	}

	out, ok := LocalizeKeys(in).(map[string]any)
	s.Require().True(ok)

	inf, ok := out["infData"].(map[string]any)
	s.Require().True(ok)
	s.Equal("x.it", inf["name"])
	host := inf["ns"].([]any)[0].(map[string]any)
	s.Equal("ns1.x.it", host["hostName"])

	s.Contains(in, "domain:infData", "input must stay untouched")
	s.Contains(in["domain:infData"], "domain:name")
}

func (s *TreeSuite) TestLocalizeKeysLeavesScalars() {
	s.Equal("plain", LocalizeKeys("plain"))
	s.Nil(LocalizeKeys(nil))
}
