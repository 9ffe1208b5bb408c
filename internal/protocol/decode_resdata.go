package protocol

import "strings"

// decodeResData dispatches the command-specific payload section. Each
// family rewrites its subtree into the flat shape callers consume, then
// whatever is left of resData merges onto the top level.
func decodeResData(r *Result, res, rd map[string]any, kind ObjectKind) {
	k := string(kind)

	if trn := asMap(rd[k+":trnData"]); trn != nil {
		res["trnData"] = map[string]any{
			"name":     text(trn[k+":name"]),
			"trStatus": text(trn[k+":trStatus"]),
			"reID":     text(trn[k+":reID"]),
			"reDate":   text(trn[k+":reDate"]),
			"acID":     text(trn[k+":acID"]),
			"acDate":   text(trn[k+":acDate"]),
		}
		delete(rd, k+":trnData")
	}

	if inf := asMap(rd[k+":infData"]); inf != nil {
		decodeInfData(inf, k)
		delete(rd, k+":infData")
		for key, v := range inf {
			rd[key] = v
		}
	}

	if chk := asMap(rd[k+":chkData"]); chk != nil {
		entries := decodeChkData(chk, k)
		r.Checks = entries
		list := make([]any, 0, len(entries))
		for _, e := range entries {
			m := map[string]any{"avail": e.Avail}
			if e.ID != "" {
				m["id"] = e.ID
			}
			if e.Name != "" {
				m["name"] = e.Name
			}
			if e.Reason != "" {
				m["reason"] = e.Reason
			}
			list = append(list, m)
		}
		rd[k] = list
		delete(rd, k+":chkData")
	}

	if cre := asMap(rd[k+":creData"]); cre != nil {
		if v := text(first(cre, k+":id", "id")); v != "" {
			rd["id"] = v
		}
		if v := text(first(cre, k+":name", "name")); v != "" {
			rd["name"] = v
		}
		if v := text(first(cre, k+":exDate", "exDate")); v != "" {
			rd["exDate"] = v
		}
		// crDate is renamed so a later info merge never clobbers it.
		rd["crData"] = text(first(cre, k+":crDate", "crDate"))
		delete(rd, k+":creData")
	}

	for key, v := range rd {
		res[key] = v
	}
}

// decodeInfData flattens an info payload in place: status attributes to a
// plain string, contacts bucketed by role, host records to flat triples,
// auth info to its password, address fields lifted to the parent and
// phone numbers unified with their extension.
func decodeInfData(inf map[string]any, k string) {
	if raw, ok := inf[k+":status"]; ok {
		var statuses []string
		for _, s := range asList(raw) {
			if code := attr(asMap(s), "s"); code != "" {
				statuses = append(statuses, code)
			}
		}
		inf[k+":status"] = strings.Join(statuses, "/")
	}

	if raw, ok := inf[k+":contact"]; ok {
		buckets := map[string]any{}
		for _, c := range asList(raw) {
			cm := asMap(c)
			typ := attr(cm, "type")
			if typ == "tech" {
				list, _ := buckets["tech"].([]any)
				buckets["tech"] = append(list, text(c))
			} else if typ != "" {
				buckets[typ] = text(c)
			}
		}
		inf[k+":contact"] = buckets
	}

	if ns := asMap(inf[k+":ns"]); ns != nil {
		var hosts []any
		for _, h := range asList(ns[k+":hostAttr"]) {
			hm := asMap(h)
			if hm == nil {
				continue
			}
			addrV := hm[k+":hostAddr"]
			ip := attr(asMap(addrV), "ip")
			if ip == "" {
				ip = attr(asMap(addrV), "type")
			}
			hosts = append(hosts, map[string]any{
				"hostName": text(hm[k+":hostName"]),
				"hostAddr": text(addrV),
				"ip":       ip,
			})
		}
		inf[k+":ns"] = hosts
	}

	if ai := asMap(inf[k+":authInfo"]); ai != nil {
		inf[k+":authInfo"] = text(ai[k+":pw"])
	}

	if pi := asMap(inf[k+":postalInfo"]); pi != nil {
		delete(pi, attrsKey)
		if addr := asMap(pi[k+":addr"]); addr != nil {
			for key, v := range addr {
				if key != attrsKey {
					pi[key] = v
				}
			}
			delete(pi, k+":addr")
		}
	}

	if v, ok := inf[k+":voice"]; ok {
		inf["voice"] = telString(v)
		delete(inf, k+":voice")
	}
	if v, ok := inf[k+":fax"]; ok {
		inf["fax"] = telString(v)
		delete(inf, k+":fax")
	}
}

func decodeChkData(chk map[string]any, k string) []CheckEntry {
	var entries []CheckEntry
	for _, cd := range asList(chk[k+":cd"]) {
		m := asMap(cd)
		if m == nil {
			continue
		}
		var e CheckEntry
		if id := asMap(m[k+":id"]); id != nil {
			e.ID = text(id)
			e.Avail = attr(id, "avail")
		}
		if name := asMap(m[k+":name"]); name != nil {
			e.Name = text(name)
			e.Avail = attr(name, "avail")
		}
		e.Reason = text(m[k+":reason"])
		entries = append(entries, e)
	}
	return entries
}

// telString renders a phone element as "<number>[ int. <extension>]".
func telString(v any) string {
	m := asMap(v)
	if m == nil {
		return text(v)
	}
	s := text(m)
	if x := attr(m, "x"); x != "" {
		s += " int. " + x
	}
	return s
}
