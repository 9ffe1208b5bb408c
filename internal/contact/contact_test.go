package contact

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
	`<extURI>http://www.nic.it/ITNIC-EPP/extcon-1.0</extURI></svcExtension></svcMenu></greeting></epp>`

func resultXML(code, msg, inner string) string {
	return `<?xml version="1.0"?><epp xmlns="urn:ietf:params:xml:ns:epp-1.0"><response>` +
		`<result code="` + code + `"><msg>` + msg + `</msg></result>` + inner +
		`<trID><clTRID>cl</clTRID><svTRID>sv-` + code + `</svTRID></trID></response></epp>`
}

type ContactSuite struct {
	suite.Suite
	tr  *stubTransport
	svc *Service
	ctx context.Context
}

func (s *ContactSuite) SetupTest() {
	s.ctx = context.Background()
	s.tr = &stubTransport{}
	s.tr.script(greetingXML, resultXML("1000", "Command completed successfully", ""))

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

func TestContactSuite(t *testing.T) {
	suite.Run(t, new(ContactSuite))
}

func (s *ContactSuite) lastCall() string {
	s.Require().NotEmpty(s.tr.calls)
	return string(s.tr.calls[len(s.tr.calls)-1])
}

func (s *ContactSuite) TestCheck() {
	s.Run("available handle", func() {
		s.tr.script(resultXML("1000", "Command completed successfully",
			`<resData><contact:chkData xmlns:contact="urn:ietf:params:xml:ns:contact-1.0">`+
				`<contact:cd><contact:id avail="1">AA100</contact:id></contact:cd>`+
				`</contact:chkData></resData>`))
		entry, res, err := s.svc.Check(s.ctx, "AA100")
		s.Require().NoError(err)
		s.True(res.Success())
		s.Equal("AA100", entry.Name)
		s.Equal("1", entry.Avail)
	})

	s.Run("reply without an entry", func() {
		s.tr.script(resultXML("1000", "Command completed successfully", ""))
		_, _, err := s.svc.Check(s.ctx, "AA100")
		s.Equal(errors.CodeDecode, errors.CodeOf(err))
	})

	s.Run("empty handle", func() {
		calls := len(s.tr.calls)
		_, _, err := s.svc.Check(s.ctx, "")
		s.Equal(errors.CodeUsage, errors.CodeOf(err))
		s.Len(s.tr.calls, calls)
	})
}

func (s *ContactSuite) TestCreate() {
	s.tr.script(resultXML("1000", "Command completed successfully",
		`<resData><contact:creData xmlns:contact="urn:ietf:params:xml:ns:contact-1.0">`+
			`<contact:id>AA100</contact:id>`+
			`<contact:crDate>2026-08-30T12:00:00Z</contact:crDate>`+
			`</contact:creData></resData>`))

	rec, err := s.svc.Create(s.ctx, protocol.Contact{
		ID:          "AA100",
		Name:        "Mario Rossi",
		Street:      []string{"Via Roma 1"},
		City:        "Pisa",
		Province:    "PI",
		PostalCode:  "56100",
		CountryCode: "IT",
		Voice:       "+39.050123456",
		Email:       "mario@example.it",
		AuthInfo:    "secret42",

		NationalityCode: "IT",
		EntityType:      1,
		RegCode:         "RSSMRA80A01G702E",
	})
	s.Require().NoError(err)
	s.Equal("AA100", rec.ID)
	s.Equal("2026-08-30T12:00:00Z", rec.Str("crData"))

	body := s.lastCall()
	s.Contains(body, "<extcon:registrant>")
	s.Contains(body, "<extcon:regCode>RSSMRA80A01G702E</extcon:regCode>")
}

// TestCreateGeneratesHandle verifies a missing handle is minted under
// the session's prefix.
func (s *ContactSuite) TestCreateGeneratesHandle() {
	s.tr.script(resultXML("1000", "Command completed successfully", ""))

	rec, err := s.svc.Create(s.ctx, protocol.Contact{
		Name:        "Mario Rossi",
		Street:      []string{"Via Roma 1"},
		City:        "Pisa",
		CountryCode: "IT",
		Email:       "mario@example.it",
		AuthInfo:    "secret42",
	})
	s.Require().NoError(err)
	s.Len(rec.ID, 16)
	s.Contains(s.lastCall(), "<contact:id>"+rec.ID+"</contact:id>")
}

func (s *ContactSuite) TestFetch() {
	s.tr.script(resultXML("1000", "Command completed successfully",
		`<resData><contact:infData xmlns:contact="urn:ietf:params:xml:ns:contact-1.0">`+
			`<contact:id>AA100</contact:id>`+
			`<contact:status s="ok"/>`+
			`<contact:voice x="22">+39.050123456</contact:voice>`+
			`<contact:email>mario@example.it</contact:email>`+
			`</contact:infData></resData>`))

	rec, err := s.svc.Fetch(s.ctx, "AA100")
	s.Require().NoError(err)
	s.Equal("ok", rec.Status())
	s.Equal("+39.050123456 int. 22", rec.Str("voice"))
	s.Equal("mario@example.it", rec.Str("email"))
}

func (s *ContactSuite) TestUpdate() {
	rec := &Record{ID: "AA100", Fields: map[string]any{"email": "old@example.it"}}

	s.Run("changes contact data", func() {
		s.tr.script(resultXML("1000", "Command completed successfully", ""))
		err := s.svc.Update(s.ctx, rec, protocol.ContactUpdate{Email: "new@example.it"})
		s.Require().NoError(err)
		s.Contains(s.lastCall(), "<contact:chg><contact:email>new@example.it</contact:email></contact:chg>")
	})

	s.Run("rejects a foreign status", func() {
		calls := len(s.tr.calls)
		err := s.svc.Update(s.ctx, rec, protocol.ContactUpdate{AddStatus: []string{"serverHold"}})
		s.Equal(errors.CodeUsage, errors.CodeOf(err))
		s.Len(s.tr.calls, calls)
	})

	s.Run("requires a record", func() {
		err := s.svc.Update(s.ctx, nil, protocol.ContactUpdate{Email: "x@example.it"})
		s.Equal(errors.CodeUsage, errors.CodeOf(err))
	})
}

func (s *ContactSuite) TestUpdateStatus() {
	rec := &Record{ID: "AA100", Fields: map[string]any{}}
	s.tr.script(resultXML("1000", "Command completed successfully", ""))

	s.Require().NoError(s.svc.UpdateStatus(s.ctx, rec, "clientDeleteProhibited", true))
	body := s.lastCall()
	s.Contains(body, "<contact:add>")
	s.Contains(body, `<contact:status s="clientDeleteProhibited"/>`)
}

func (s *ContactSuite) TestDelete() {
	s.Run("linked contact is refused", func() {
		s.tr.script(resultXML("2305", "Object association prohibits operation", ""))
		_, err := s.svc.Delete(s.ctx, "AA100")
		s.Require().Error(err)
		s.Equal(errors.CodeResult, errors.CodeOf(err))
	})

	s.Run("free contact is removed", func() {
		s.tr.script(resultXML("1000", "Command completed successfully", ""))
		res, err := s.svc.Delete(s.ctx, "AA100")
		s.Require().NoError(err)
		s.True(res.Success())
	})
}
