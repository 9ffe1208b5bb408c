package session

import (
	"eppclient/internal/protocol"
	"eppclient/internal/store"
	"eppclient/pkg/errors"
)

func pollXML(msgID, title, inner string) string {
	return resultXML("1301", "Command completed successfully; ack to dequeue",
		`<msgQ count="3" id="`+msgID+`"><qDate>2026-08-20T09:00:00Z</qDate><msg>`+title+`</msg></msgQ>`+inner)
}

func (s *SessionSuite) TestPollValidation() {
	s.login()

	_, _, err := s.sess.Poll(s.ctx, "ack", "")
	s.Equal(errors.CodeUsage, errors.CodeOf(err))

	_, _, err = s.sess.Poll(s.ctx, "push", "")
	s.Equal(errors.CodeUsage, errors.CodeOf(err))

	s.Len(s.tr.calls, 2, "invalid polls never reach the transport")
}

// TestPollStoresMessage verifies a req poll classifies and archives the
// queued message and caches the queue counters.
func (s *SessionSuite) TestPollStoresMessage() {
	s.login()
	s.tr.script(pollXML("41", "Credit transferred",
		`<extension><extepp:simpleMsgData xmlns:extepp="http://www.nic.it/ITNIC-EPP/extepp-2.0">`+
			`<extepp:name>example.it</extepp:name></extepp:simpleMsgData></extension>`))

	_, msg, err := s.sess.Poll(s.ctx, "req", "")
	s.Require().NoError(err)
	s.Require().NotNil(msg)
	s.Equal("simpleMsgData", msg.Type)
	s.Equal("example.it", msg.Domain)
	s.Equal("41", msg.ID)

	msgs := s.audit.Messages()
	s.Require().Len(msgs, 1)
	s.Equal("41", msgs[0].ID)
	s.Equal("Credit transferred", msgs[0].Title)

	id, err := s.sess.MessageID(s.ctx)
	s.Require().NoError(err)
	s.Equal("41", id)
	count, err := s.sess.MessageCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, count)
}

// TestPollDedupe verifies a message seen before is not archived twice.
func (s *SessionSuite) TestPollDedupe() {
	s.tr = &stubTransport{}
	sess := s.newSession(WithDedupe(store.NewInMemoryDedupe()))
	s.tr.script(greetingXML, resultXML("1000", "Command completed successfully", ""))
	_, err := sess.Hello(s.ctx)
	s.Require().NoError(err)
	_, err = sess.Login(s.ctx, "")
	s.Require().NoError(err)

	body := pollXML("41", "Notice", "")
	s.tr.script(body, body)

	_, msg, err := sess.Poll(s.ctx, "req", "")
	s.Require().NoError(err)
	s.Require().NotNil(msg)
	_, msg, err = sess.Poll(s.ctx, "req", "")
	s.Require().NoError(err)
	s.Require().NotNil(msg)

	s.Len(s.audit.Messages(), 1, "second sighting must not re-archive")
}

func (s *SessionSuite) TestPollAck() {
	s.login()
	s.tr.script(resultXML("1000", "Command completed successfully", `<msgQ count="2" id="42"/>`))

	res, err := s.sess.AckMessage(s.ctx, "41")
	s.Require().NoError(err)
	s.Require().NotNil(res.MsgQ)
	s.Contains(string(s.tr.calls[2]), `<poll op="ack" msgID="41"/>`)
	s.Empty(s.audit.Messages(), "acks never archive")
}

// TestClassify walks the message families the queue delivers.
func (s *SessionSuite) TestClassify() {
	mq := &protocol.MessageQueue{ID: "7", Msg: "title", Date: "2026-08-20T09:00:00Z"}

	cases := []struct {
		name   string
		fields map[string]any
		typ    string
		domain string
		data   string
	}{
		{
			name:   "password reminder",
			fields: map[string]any{"passwordReminder": "2026-09-30"},
			typ:    "passwdReminder",
			data:   "2026-09-30",
		},
		{
			name:   "credit",
			fields: map[string]any{"creditMsgData": "99.50"},
			typ:    "creditMsgData",
			data:   "99.50",
		},
		{
			name:   "delayed debit",
			fields: map[string]any{"delayedDebitAndRefundMsgData": "example.it/5.00"},
			typ:    "delayedDebitAndRefundMsgData",
			data:   "example.it/5.00",
		},
		{
			name:   "wrong namespace",
			fields: map[string]any{"wrongNamespaceReminder": []any{"urn:old-1.0", "urn:older-1.0"}},
			typ:    "wrongNamespaceReminder",
			data:   "title (urn:old-1.0,urn:older-1.0)",
		},
		{
			name: "status change",
			fields: map[string]any{"chgStatusMsgData": map[string]any{
				"name":         "example.it.",
				"targetStatus": map[string]any{"status": "pendingDelete", "rgpStatus": "redemptionPeriod"},
			}},
			typ:    "chgStatusMsgData",
			domain: "example.it",
			data:   "title (pendingDelete,redemptionPeriod)",
		},
		{
			name: "delegation change",
			fields: map[string]any{"dlgMsgData": map[string]any{
				"name": "example.it",
				"ns":   []any{"ns1.example.it", "ns2.example.it"},
			}},
			typ:    "dlgMsgData",
			domain: "example.it",
			data:   "title (ns1.example.it,ns2.example.it)",
		},
		{
			name: "transfer",
			fields: map[string]any{"trnData": map[string]any{
				"name": "example.it.", "trStatus": "serverApproved",
				"reID": "REG-NEW", "reDate": "2026-08-25",
				"acID": "REG-OLD", "acDate": "2026-08-20",
			}},
			typ:    "serverApprovedTransfer",
			domain: "example.it",
			data:   "title: from REG-OLD (2026-08-20) to REG-NEW (2026-08-25)",
		},
		{
			name:   "unknown",
			fields: map[string]any{},
			typ:    "unknown",
			data:   "title",
		},
	}

	for _, c := range cases {
		s.Run(c.name, func() {
			msg := s.sess.classify(&protocol.Result{MsgQ: mq, Fields: c.fields})
			s.Equal(c.typ, msg.Type)
			s.Equal(c.domain, msg.Domain)
			s.Equal(c.data, msg.Data)
		})
	}
}

// TestClassifyDNSError exercises the rgp-optional rendering of a DNS
// validation failure.
func (s *SessionSuite) TestClassifyDNSError() {
	mq := &protocol.MessageQueue{ID: "8", Msg: "DNS check failed"}
	msg := s.sess.classify(&protocol.Result{MsgQ: mq, Fields: map[string]any{
		"dnsErrorMsgData": map[string]any{
			"domain": "bad.it.",
			"nameservers": map[string]any{
				"ns1.bad.it": map[string]any{"Reachability": "FAILED"},
			},
		},
	}})
	s.Equal("dnsErrorMsgData", msg.Type)
	s.Equal("bad.it", msg.Domain)
	s.Equal("DNS check failed (ns1.bad.it[Reachability]=FAILED)", msg.Data)
}
