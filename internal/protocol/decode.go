package protocol

import (
	"eppclient/pkg/errors"
)

// WrongValue is the extended failure detail a result may carry: either a
// rejected element (Element/Namespace/Value) or an extended reason
// (Code/Reason).
type WrongValue struct {
	Element   string
	Namespace string
	Value     string
	Code      string
	Reason    string
}

// MessageQueue is the flattened msgQ element of a poll reply.
type MessageQueue struct {
	ID    string
	Count string
	Date  string
	Msg   string
}

// CheckEntry is one availability datum from a check reply. ID is set for
// contacts, Name for domains.
type CheckEntry struct {
	ID     string
	Name   string
	Avail  string
	Reason string
}

// Result is the normalized form of one reply. Typed fields cover what the
// session engine acts on; Fields carries every remaining datum with
// namespace prefixes stripped, ready to merge into a record.
type Result struct {
	Code        string
	Message     string
	WrongValues []WrongValue
	Greeting    *Greeting
	MsgQ        *MessageQueue
	Checks      []CheckEntry
	ClTRID      string
	SvTRID      string
	Fields      map[string]any
}

// Success reports whether the result code's leading digit marks success.
func (r *Result) Success() bool {
	return len(r.Code) > 0 && r.Code[0] == '1'
}

// Str returns a field as a string, or "" when absent or non-scalar.
func (r *Result) Str(key string) string {
	return text(r.Fields[key])
}

// DecodeContext tells the decoder which command family the reply answers,
// so resData and extension dispatch use the right namespace keys.
type DecodeContext struct {
	Kind ObjectKind
	// ExtKeys overrides the extension namespace keys probed for a
	// session-kind reply. Empty means the full default set.
	ExtKeys []string
}

var sessionExtKeys = []string{"extepp", "extdom", "extcon", "extsecDNS"}

// Decode normalizes a raw reply document. A malformed document, a missing
// epp root, or a command reply without a result code are decode errors;
// every other missing element simply leaves its field absent.
func Decode(body []byte, ctx DecodeContext) (*Result, error) {
	tree, err := ParseTree(body)
	if err != nil {
		return nil, err
	}
	epp := asMap(tree["epp"])
	if epp == nil {
		return nil, errors.New(errors.CodeDecode, "reply lacks the epp root element")
	}
	res := asMap(epp["response"])
	if res == nil {
		res = epp
	}

	r := &Result{}

	if g := asMap(res["greeting"]); g != nil {
		r.Greeting = decodeGreeting(g)
		delete(res, "greeting")
	}

	if raw, ok := res["result"]; ok {
		decodeResult(r, raw)
		delete(res, "result")
	} else if r.Greeting == nil {
		return nil, errors.New(errors.CodeDecode, "reply carries neither result nor greeting")
	}

	if q := asMap(res["msgQ"]); q != nil {
		r.MsgQ = &MessageQueue{
			ID:    attr(q, "id"),
			Count: attr(q, "count"),
			Date:  text(q["qDate"]),
			Msg:   text(q["msg"]),
		}
		delete(res, "msgQ")
	}

	if rd := asMap(res["resData"]); rd != nil {
		decodeResData(r, res, rd, ctx.Kind)
		delete(res, "resData")
	}

	if ext := asMap(res["extension"]); ext != nil {
		if ctx.Kind == KindSession {
			keys := ctx.ExtKeys
			if len(keys) == 0 {
				keys = sessionExtKeys
			}
			decodeSessionExtension(res, ext, keys)
		} else {
			decodeObjectExtension(res, ext, ctx.Kind)
		}
		delete(res, "extension")
	}

	if tr := asMap(res["trID"]); tr != nil {
		r.ClTRID = text(tr["clTRID"])
		r.SvTRID = text(tr["svTRID"])
		delete(res, "trID")
	}

	fields, _ := LocalizeKeys(res).(map[string]any)
	if fields == nil {
		fields = map[string]any{}
	}
	if r.Code != "" {
		result := map[string]any{"code": r.Code, "msg": r.Message}
		fields["result"] = result
	}
	r.Fields = fields
	return r, nil
}

func decodeGreeting(g map[string]any) *Greeting {
	out := &Greeting{
		ServerID:   text(g["svID"]),
		ServerDate: text(g["svDate"]),
	}
	menu := asMap(g["svcMenu"])
	if menu == nil {
		return out
	}
	out.Version = text(menu["version"])
	for _, l := range asList(menu["lang"]) {
		out.Languages = append(out.Languages, text(l))
	}
	for _, u := range asList(menu["objURI"]) {
		out.ObjURIs = append(out.ObjURIs, text(u))
	}
	if svcExt := asMap(menu["svcExtension"]); svcExt != nil {
		for _, u := range asList(svcExt["extURI"]) {
			out.ExtURIs = append(out.ExtURIs, text(u))
		}
	}
	return out
}

// decodeResult lifts code and message and both forms of extended failure
// detail. Servers may repeat the result element; the first carries the
// authoritative code, wrong values accumulate across all of them.
func decodeResult(r *Result, raw any) {
	for i, item := range asList(raw) {
		m := asMap(item)
		if m == nil {
			continue
		}
		if i == 0 {
			r.Code = attr(m, "code")
			r.Message = text(m["msg"])
		}
		for _, v := range asList(m["value"]) {
			wv := asMap(asMap(v)["extepp:wrongValue"])
			if wv == nil {
				continue
			}
			r.WrongValues = append(r.WrongValues, WrongValue{
				Element:   text(wv["extepp:element"]),
				Namespace: text(wv["extepp:namespace"]),
				Value:     text(wv["extepp:value"]),
			})
		}
		for _, v := range asList(m["extValue"]) {
			ev := asMap(v)
			if ev == nil {
				continue
			}
			r.WrongValues = append(r.WrongValues, WrongValue{
				Code:   text(asMap(ev["value"])["extepp:reasonCode"]),
				Reason: text(ev["reason"]),
			})
		}
	}
}
