package session

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"eppclient/internal/protocol"
	"eppclient/internal/store"
	"eppclient/pkg/errors"
)

// Message is one classified entry from the server message queue.
type Message struct {
	ID     string
	Type   string
	Domain string
	Title  string
	Date   string
	Data   string
}

// Poll reads ("req") or acknowledges ("ack") the server message queue.
// A "req" that finds a message classifies, archives and publishes it;
// the classified message is returned alongside the raw result.
func (s *Session) Poll(ctx context.Context, typ, msgID string) (*protocol.Result, *Message, error) {
	typ = strings.ToLower(typ)
	switch typ {
	case "req":
	case "ack":
		if msgID == "" {
			return nil, nil, errors.New(errors.CodeUsage, "poll ack requires a message ID")
		}
	default:
		return nil, nil, errors.Newf(errors.CodeUsage, "poll type %q not supported, use req or ack", typ)
	}

	cmd := protocol.Command{
		Kind:    protocol.KindSession,
		Op:      protocol.OpPoll,
		Payload: protocol.Poll{Op: typ, MsgID: msgID},
	}
	res, err := s.Do(ctx, cmd, msgID)
	if err != nil || res == nil {
		return res, nil, err
	}

	if res.MsgQ == nil {
		// Empty queue (result 1300) or a bare ack receipt.
		return res, nil, nil
	}

	s.msgID = res.MsgQ.ID
	s.msgTitle = res.MsgQ.Msg
	s.msgDate = res.MsgQ.Date
	if n, cerr := strconv.Atoi(res.MsgQ.Count); cerr == nil {
		s.msgTotal = n
	}

	if typ != "req" {
		return res, nil, nil
	}

	msg := s.classify(res)

	if s.metrics != nil {
		s.metrics.IncrementPollMessage(msg.Type)
	}

	if s.dedupe != nil {
		seen, derr := s.dedupe.Seen(ctx, msg.ID)
		if derr != nil {
			s.logger.Warn("message dedupe check failed", "msg_id", msg.ID, "error", derr)
		} else if seen {
			s.logger.Debug("message already archived", "msg_id", msg.ID, "type", msg.Type)
			return res, msg, nil
		}
	}

	rec := store.MessageRecord{
		ID:        msg.ID,
		Type:      msg.Type,
		Domain:    msg.Domain,
		Title:     msg.Title,
		Date:      msg.Date,
		Body:      []byte(msg.Data),
		ClTRID:    s.clTRID,
		SvTRID:    s.svTRID,
		CreatedAt: s.clock(),
	}
	if s.store != nil {
		if serr := s.store.SaveMessage(ctx, rec); serr != nil {
			s.logger.Warn("message archive write failed", "msg_id", msg.ID, "error", serr)
		}
	}
	if s.publisher != nil {
		if perr := s.publisher.Publish(ctx, rec); perr != nil {
			s.logger.Warn("message publish failed", "msg_id", msg.ID, "error", perr)
		}
	}

	s.logger.Info("queue message processed",
		"msg_id", msg.ID, "type", msg.Type, "domain", msg.Domain, "remaining", s.msgTotal)
	return res, msg, nil
}

// MessageID returns the ID of the message currently on top of the
// queue, polling once if the queue has not been looked at yet.
func (s *Session) MessageID(ctx context.Context) (string, error) {
	if s.msgID == "" {
		if _, _, err := s.Poll(ctx, "req", ""); err != nil {
			return "", err
		}
	}
	return s.msgID, nil
}

// MessageCount returns the number of queued messages, polling once if
// the queue has not been looked at yet.
func (s *Session) MessageCount(ctx context.Context) (int, error) {
	if s.msgID == "" {
		if _, _, err := s.Poll(ctx, "req", ""); err != nil {
			return 0, err
		}
	}
	return s.msgTotal, nil
}

// AckMessage acknowledges the given message, removing it from the queue.
func (s *Session) AckMessage(ctx context.Context, msgID string) (*protocol.Result, error) {
	res, _, err := s.Poll(ctx, "ack", msgID)
	return res, err
}

// classify maps the decoded fields of a poll reply onto a message type
// and a human-readable summary line.
func (s *Session) classify(res *protocol.Result) *Message {
	msg := &Message{
		ID:    res.MsgQ.ID,
		Title: res.MsgQ.Msg,
		Date:  res.MsgQ.Date,
		Type:  "unknown",
		Data:  res.MsgQ.Msg,
	}
	f := res.Fields

	if v := res.Str("passwordReminder"); v != "" {
		msg.Type = "passwdReminder"
		msg.Data = v
		return msg
	}
	if v := res.Str("creditMsgData"); v != "" {
		msg.Type = "creditMsgData"
		msg.Data = v
		return msg
	}
	if v := res.Str("delayedDebitAndRefundMsgData"); v != "" {
		msg.Type = "delayedDebitAndRefundMsgData"
		msg.Data = v
		return msg
	}
	if v := res.Str("simpleMsgData"); v != "" {
		msg.Type = "simpleMsgData"
		msg.Domain = v
		return msg
	}
	if list, ok := f["wrongNamespaceReminder"].([]any); ok {
		msg.Type = "wrongNamespaceReminder"
		msg.Data = res.MsgQ.Msg + " (" + joinAny(list) + ")"
		return msg
	}
	if dns, ok := f["dnsErrorMsgData"].(map[string]any); ok {
		msg.Type = "dnsErrorMsgData"
		msg.Domain = stripTrailingDot(fieldStr(dns, "domain"))
		msg.Data = res.MsgQ.Msg + " (" + dnsErrorSummary(dns) + ")"
		return msg
	}
	if chg, ok := f["chgStatusMsgData"].(map[string]any); ok {
		msg.Type = "chgStatusMsgData"
		msg.Domain = stripTrailingDot(fieldStr(chg, "name"))
		if target, ok := chg["targetStatus"].(map[string]any); ok {
			detail := fieldStr(target, "status")
			if rgp := fieldStr(target, "rgpStatus"); rgp != "" {
				detail += "," + rgp
			}
			msg.Data = res.MsgQ.Msg + " (" + detail + ")"
		}
		return msg
	}
	if dlg, ok := f["dlgMsgData"].(map[string]any); ok {
		msg.Type = "dlgMsgData"
		msg.Domain = fieldStr(dlg, "name")
		if ns, ok := dlg["ns"].([]any); ok {
			msg.Data = res.MsgQ.Msg + " (" + joinAny(ns) + ")"
		}
		return msg
	}
	if trn, ok := f["trnData"].(map[string]any); ok {
		msg.Type = fieldStr(trn, "trStatus") + "Transfer"
		msg.Domain = stripTrailingDot(fieldStr(trn, "name"))
		msg.Data = fmt.Sprintf("%s: from %s (%s) to %s (%s)",
			res.MsgQ.Msg,
			fieldStr(trn, "acID"), fieldStr(trn, "acDate"),
			fieldStr(trn, "reID"), fieldStr(trn, "reDate"))
		return msg
	}
	return msg
}

// dnsErrorSummary renders the per-nameserver test outcomes as
// "host[test]=status" pairs in stable order.
func dnsErrorSummary(dns map[string]any) string {
	servers, _ := dns["nameservers"].(map[string]any)
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		entry, _ := servers[name].(map[string]any)
		keys := make([]string, 0, len(entry))
		for k := range entry {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s[%s]=%v", name, k, entry[k]))
		}
	}
	return strings.Join(parts, ", ")
}

// stripTrailingDot normalizes fully-qualified names the queue reports
// with a trailing dot.
func stripTrailingDot(domain string) string {
	return strings.TrimSuffix(domain, ".")
}

func fieldStr(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func joinAny(list []any) string {
	parts := make([]string, 0, len(list))
	for _, v := range list {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ",")
}
