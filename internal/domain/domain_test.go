package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"eppclient/internal/protocol"
	"eppclient/internal/session"
	"eppclient/internal/transport"
	"eppclient/pkg/errors"
)

type stubTransport struct {
	replies [][]byte
	calls   [][]byte
}

func (t *stubTransport) Send(_ context.Context, body []byte) (*transport.Reply, error) {
	t.calls = append(t.calls, body)
	if len(t.replies) == 0 {
		return nil, errors.New(errors.CodeTransport, "no scripted reply left")
	}
	body = t.replies[0]
	t.replies = t.replies[1:]
	return &transport.Reply{StatusCode: 200, Body: body}, nil
}

func (t *stubTransport) script(bodies ...string) {
	for _, b := range bodies {
		t.replies = append(t.replies, []byte(b))
	}
}

const greetingXML = `<?xml version="1.0"?><epp xmlns="urn:ietf:params:xml:ns:epp-1.0"><greeting>` +
	`<svID>test-server</svID><svDate>2026-08-01T00:00:00Z</svDate><svcMenu><version>1.0</version><lang>en</lang>` +
	`<objURI>urn:ietf:params:xml:ns:contact-1.0</objURI><objURI>urn:ietf:params:xml:ns:domain-1.0</objURI>` +
	`<svcExtension><extURI>http://www.nic.it/ITNIC-EPP/extepp-2.0</extURI>` +
	`<extURI>http://www.nic.it/ITNIC-EPP/extdom-2.0</extURI><extURI>http://www.nic.it/ITNIC-EPP/extcon-1.0</extURI>` +
	`<extURI>urn:ietf:params:xml:ns:rgp-1.0</extURI></svcExtension></svcMenu></greeting></epp>`

func resultXML(code, msg, inner string) string {
	return `<?xml version="1.0"?><epp xmlns="urn:ietf:params:xml:ns:epp-1.0"><response>` +
		`<result code="` + code + `"><msg>` + msg + `</msg></result>` + inner +
		`<trID><clTRID>cl</clTRID><svTRID>sv-` + code + `</svTRID></trID></response></epp>`
}

const okCode = "1000"

type DomainSuite struct {
	suite.Suite
	tr  *stubTransport
	svc *Service
	ctx context.Context
}

func (s *DomainSuite) SetupTest() {
	s.ctx = context.Background()
	s.tr = &stubTransport{}
	s.tr.script(greetingXML, resultXML(okCode, "Command completed successfully", ""))

	sess, err := session.New(session.Config{
		ClientID:     "REGISTRAR-X",
		Password:     "hunter22",
		ClTRIDPrefix: "test",
	}, s.tr)
	s.Require().NoError(err)
	_, err = sess.Hello(s.ctx)
	s.Require().NoError(err)
	_, err = sess.Login(s.ctx, "")
	s.Require().NoError(err)

	s.svc, err = New(sess)
	s.Require().NoError(err)
}

func TestDomainSuite(t *testing.T) {
	suite.Run(t, new(DomainSuite))
}

// lastCall returns the body of the most recent transport call.
func (s *DomainSuite) lastCall() string {
	s.Require().NotEmpty(s.tr.calls)
	return string(s.tr.calls[len(s.tr.calls)-1])
}

func (s *DomainSuite) TestCheck() {
	s.tr.script(resultXML(okCode, "Command completed successfully",
		`<resData><domain:chkData xmlns:domain="urn:ietf:params:xml:ns:domain-1.0">`+
			`<domain:cd><domain:name avail="1">free.it</domain:name></domain:cd>`+
			`<domain:cd><domain:name avail="0">taken.it</domain:name><domain:reason>in use</domain:reason></domain:cd>`+
			`</domain:chkData></resData>`))

	entries, res, err := s.svc.Check(s.ctx, "free.it", "taken.it")
	s.Require().NoError(err)
	s.True(res.Success())
	s.Require().Len(entries, 2)
	s.Equal("free.it", entries[0].Name)
	s.Equal("1", entries[0].Avail)
	s.Equal("taken.it", entries[1].Name)
	s.Equal("0", entries[1].Avail)
	s.Equal("in use", entries[1].Reason)

	s.Run("rejects an empty name list", func() {
		calls := len(s.tr.calls)
		_, _, err := s.svc.Check(s.ctx)
		s.Equal(errors.CodeUsage, errors.CodeOf(err))
		s.Len(s.tr.calls, calls, "nothing may touch the transport")
	})
}

func (s *DomainSuite) TestCreate() {
	s.tr.script(resultXML(okCode, "Command completed successfully",
		`<resData><domain:creData xmlns:domain="urn:ietf:params:xml:ns:domain-1.0">`+
			`<domain:name>example.it</domain:name>`+
			`<domain:crDate>2026-08-30T12:00:00Z</domain:crDate>`+
			`<domain:exDate>2027-08-30T12:00:00Z</domain:exDate>`+
			`</domain:creData></resData>`))

	rec, err := s.svc.Create(s.ctx, protocol.DomainCreate{
		Name:       "example.it",
		Registrant: "REG-1",
		Admin:      "ADM-1",
		Tech:       []string{"TEC-1"},
		AuthInfo:   "secret42",
		NS: []protocol.Host{
			{Name: "ns1.example.it", Addr: "192.0.2.1", AddrType: "v4"},
			{Name: "ns2.example.com"},
		},
	})
	s.Require().NoError(err)
	s.Equal("example.it", rec.Name)
	s.Equal("2026-08-30T12:00:00Z", rec.Str("crData"))
	s.Equal("2027-08-30T12:00:00Z", rec.Str("exDate"))
	s.Require().Len(rec.NS, 2, "delegation snapshot comes from the request")
	s.Equal("ns1.example.it", rec.NS[0].Name)
}

func (s *DomainSuite) TestFetch() {
	s.tr.script(resultXML(okCode, "Command completed successfully",
		`<resData><domain:infData xmlns:domain="urn:ietf:params:xml:ns:domain-1.0">`+
			`<domain:name>example.it</domain:name>`+
			`<domain:status s="ok"/><domain:status s="clientUpdateProhibited"/>`+
			`<domain:registrant>REG-1</domain:registrant>`+
			`<domain:contact type="admin">ADM-1</domain:contact>`+
			`<domain:ns><domain:hostAttr><domain:hostName>ns1.example.it</domain:hostName></domain:hostAttr>`+
			`<domain:hostAttr><domain:hostName>ns2.example.it</domain:hostName>`+
			`<domain:hostAddr ip="v4">192.0.2.2</domain:hostAddr></domain:hostAttr></domain:ns>`+
			`<domain:authInfo><domain:pw>secret42</domain:pw></domain:authInfo>`+
			`</domain:infData></resData>`+
			`<extension><secDNS:infData xmlns:secDNS="urn:ietf:params:xml:ns:secDNS-1.1">`+
			`<secDNS:dsData><secDNS:keyTag>12345</secDNS:keyTag><secDNS:alg>13</secDNS:alg>`+
			`<secDNS:digestType>2</secDNS:digestType><secDNS:digest>ABCDEF</secDNS:digest>`+
			`</secDNS:dsData></secDNS:infData></extension>`))

	rec, err := s.svc.Fetch(s.ctx, "example.it", "", "all")
	s.Require().NoError(err)
	s.Equal("ok/clientUpdateProhibited", rec.Status())
	s.Equal("REG-1", rec.Str("registrant"))
	s.Equal("secret42", rec.Str("authInfo"))

	s.Require().Len(rec.NS, 2, "delegation snapshot rebuilt from the reply")
	s.Equal("ns2.example.it", rec.NS[1].Name)
	s.Equal("192.0.2.2", rec.NS[1].Addr)
	s.Equal("v4", rec.NS[1].AddrType)

	s.Require().Len(rec.DS.Records, 1)
	s.Equal(12345, rec.DS.Records[0].KeyTag)
	s.Equal(13, rec.DS.Records[0].Alg)
	s.Equal("ABCDEF", rec.DS.Records[0].Digest)

	s.Contains(s.lastCall(), "<extdom:infContacts", "contact scope rides as an extension")
}

// TestFetchScope verifies unknown scopes fall back to a plain info.
func (s *DomainSuite) TestFetchScope() {
	s.tr.script(resultXML(okCode, "Command completed successfully",
		`<resData><domain:infData xmlns:domain="urn:ietf:params:xml:ns:domain-1.0">`+
			`<domain:name>example.it</domain:name></domain:infData></resData>`))

	_, err := s.svc.Fetch(s.ctx, "example.it", "", "everything")
	s.Require().NoError(err)
	s.NotContains(s.lastCall(), "infContacts")
}

func (s *DomainSuite) TestUpdateHosts() {
	rec := &Record{
		Name:   "example.it",
		Fields: map[string]any{},
		NS: []protocol.Host{
			{Name: "ns1.example.it"},
			{Name: "ns2.example.it"},
		},
	}
	s.tr.script(resultXML(okCode, "Command completed successfully", ""))

	next := []protocol.Host{
		{Name: "ns2.example.it"},
		{Name: "ns3.example.it"},
	}
	s.Require().NoError(s.svc.UpdateHosts(s.ctx, rec, next, nil))

	body := s.lastCall()
	s.Contains(body, "ns3.example.it", "new host is added")
	s.Contains(body, "ns1.example.it", "dropped host is removed")
	s.Equal(next, rec.NS, "snapshot follows the accepted change")

	s.Run("rejects an empty delegation", func() {
		calls := len(s.tr.calls)
		err := s.svc.UpdateHosts(s.ctx, rec, nil, nil)
		s.Equal(errors.CodeUsage, errors.CodeOf(err))
		s.Len(s.tr.calls, calls)
	})
}

func (s *DomainSuite) TestUpdateStatus() {
	rec := &Record{Name: "example.it", Fields: map[string]any{}}

	s.Run("rejects a server-side status", func() {
		calls := len(s.tr.calls)
		err := s.svc.UpdateStatus(s.ctx, rec, "serverHold", true)
		s.Equal(errors.CodeUsage, errors.CodeOf(err))
		s.Len(s.tr.calls, calls, "nothing may touch the transport")
	})

	s.Run("adds a client status", func() {
		s.tr.script(resultXML(okCode, "Command completed successfully", ""))
		s.Require().NoError(s.svc.UpdateStatus(s.ctx, rec, "clientHold", true))
		s.Contains(s.lastCall(), `<domain:status s="clientHold"/>`)
		s.Contains(s.lastCall(), "<domain:add>")
	})

	s.Run("removes a client status", func() {
		s.tr.script(resultXML(okCode, "Command completed successfully", ""))
		s.Require().NoError(s.svc.UpdateStatus(s.ctx, rec, "clientHold", false))
		s.Contains(s.lastCall(), "<domain:rem>")
	})
}

func (s *DomainSuite) TestUpdateRegistrant() {
	rec := &Record{Name: "example.it", Fields: map[string]any{}}

	s.Run("requires the auth code", func() {
		err := s.svc.UpdateRegistrant(s.ctx, rec, "REG-2", "")
		s.Equal(errors.CodeUsage, errors.CodeOf(err))
	})

	s.Run("requires a fetched record", func() {
		err := s.svc.UpdateRegistrant(s.ctx, nil, "REG-2", "code")
		s.Equal(errors.CodeUsage, errors.CodeOf(err))
	})

	s.Run("sends the trade", func() {
		s.tr.script(resultXML(okCode, "Command completed successfully", ""))
		s.Require().NoError(s.svc.UpdateRegistrant(s.ctx, rec, "REG-2", "newcode"))
		body := s.lastCall()
		s.Contains(body, "<domain:registrant>REG-2</domain:registrant>")
		s.Contains(body, "<domain:pw>newcode</domain:pw>")
	})
}

func (s *DomainSuite) TestDeleteAndRestore() {
	s.tr.script(
		resultXML("1001", "Command completed successfully; action pending", ""),
		resultXML(okCode, "Command completed successfully", ""),
	)

	res, err := s.svc.Delete(s.ctx, "example.it")
	s.Require().NoError(err)
	s.Equal("1001", res.Code)

	_, err = s.svc.Restore(s.ctx, "example.it")
	s.Require().NoError(err)
	s.Contains(s.lastCall(), `<rgp:restore op="request"/>`)
	s.Contains(s.lastCall(), "<domain:chg/>")
}

func (s *DomainSuite) TestTransfer() {
	s.tr.script(resultXML("1001", "Command completed successfully; action pending",
		`<resData><domain:trnData xmlns:domain="urn:ietf:params:xml:ns:domain-1.0">`+
			`<domain:name>example.it</domain:name><domain:trStatus>pending</domain:trStatus>`+
			`<domain:reID>REGISTRAR-X</domain:reID><domain:reDate>2026-08-30T12:00:00Z</domain:reDate>`+
			`<domain:acID>REGISTRAR-Y</domain:acID><domain:acDate>2026-09-04T12:00:00Z</domain:acDate>`+
			`</domain:trnData></resData>`))

	res, err := s.svc.Transfer(s.ctx, protocol.DomainTransfer{
		Name:        "example.it",
		Op:          protocol.TransferRequest,
		OldAuthInfo: "oldsecret",
	})
	s.Require().NoError(err)
	s.Equal("pending", res.Str("trStatus"))
	s.Equal("REGISTRAR-Y", res.Str("acID"))
	s.Contains(s.lastCall(), `op="request"`)
	s.Contains(s.lastCall(), "<domain:pw>oldsecret</domain:pw>")
}

// TestServerRefusal verifies a non-success result surfaces as an error
// without disturbing the record.
func (s *DomainSuite) TestServerRefusal() {
	rec := &Record{Name: "example.it", Fields: map[string]any{"registrant": "REG-1"}}
	s.tr.script(resultXML("2304", "Object status prohibits operation", ""))

	err := s.svc.UpdateAuthInfo(s.ctx, rec, "newsecret")
	s.Require().Error(err)
	s.Equal(errors.CodeResult, errors.CodeOf(err))
	s.Equal("REG-1", rec.Str("registrant"), "record keeps its last good state")
}
