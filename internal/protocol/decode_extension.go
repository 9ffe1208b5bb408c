package protocol

import "strings"

// decodeSessionExtension lifts poll-message extension blocks to named
// top-level fields. The probed namespace keys cover every family the
// server is known to queue messages under.
func decodeSessionExtension(res, ext map[string]any, keys []string) {
	for _, e := range keys {
		if v := asMap(ext[e+":creditMsgData"]); v != nil {
			res["creditMsgData"] = text(v[e+":credit"])
		}
		if v := asMap(ext[e+":passwordReminder"]); v != nil {
			res["passwordReminder"] = text(first(v, e+":exDate", "exDate"))
		}
		if v := asMap(ext[e+":delayedDebitAndRefundMsgData"]); v != nil {
			res["delayedDebitAndRefundMsgData"] = text(first(v, e+":name", "name")) +
				"/" + text(first(v, e+":amount", "amount"))
		}
		if v := asMap(ext[e+":simpleMsgData"]); v != nil {
			res["simpleMsgData"] = text(first(v, e+":name", "name"))
		}
		if v := asMap(ext[e+":wrongNamespaceReminder"]); v != nil {
			var spaces []any
			for _, wni := range asList(v[e+":wrongNamespaceInfo"]) {
				if m := asMap(wni); m != nil {
					spaces = append(spaces, text(m[e+":wrongNamespace"]))
				}
			}
			res["wrongNamespaceReminder"] = spaces
		}
		if v := asMap(ext[e+":dnsErrorMsgData"]); v != nil {
			res["dnsErrorMsgData"] = decodeDNSError(v, e)
		}
		if v := asMap(ext[e+":chgStatusMsgData"]); v != nil {
			target := asMap(v[e+":targetStatus"])
			ts := map[string]any{
				"status": attr(asMap(target["domain:status"]), "s"),
			}
			// rgpStatus rides along only during grace periods.
			if rgp := asMap(target["rgp:rgpStatus"]); rgp != nil {
				ts["rgpStatus"] = attr(rgp, "s")
			}
			res["chgStatusMsgData"] = map[string]any{
				"name":         text(v[e+":name"]),
				"targetStatus": ts,
			}
		}
		if v := asMap(ext[e+":dlgMsgData"]); v != nil {
			var hosts []any
			for _, ns := range asList(v[e+":ns"]) {
				hosts = append(hosts, text(ns))
			}
			res["dlgMsgData"] = map[string]any{
				"name": text(v[e+":name"]),
				"ns":   hosts,
			}
		}
	}
}

// decodeDNSError flattens a DNS validation failure report: one entry per
// nameserver, annotated with the status of every test that exercised it.
func decodeDNSError(v map[string]any, e string) map[string]any {
	nameservers := map[string]any{}
	for _, raw := range asList(asMap(v[e+":nameservers"])[e+":nameserver"]) {
		m := asMap(raw)
		if m == nil {
			continue
		}
		entry := map[string]any{}
		if addr := m[e+":address"]; addr != nil {
			entry["ip"] = text(addr)
			entry["type"] = attr(asMap(addr), "type")
		}
		nameservers[attr(m, "name")] = entry
	}
	for _, raw := range asList(asMap(v[e+":tests"])[e+":test"]) {
		tm := asMap(raw)
		if tm == nil {
			continue
		}
		testName := attr(tm, "name")
		for _, nsRaw := range asList(tm[e+":nameserver"]) {
			nm := asMap(nsRaw)
			if nm == nil {
				continue
			}
			status := attr(nm, "status")
			if detail := text(nm[e+":detail"]); detail != "" {
				status += " " + detail
			}
			entry, _ := nameservers[attr(nm, "name")].(map[string]any)
			if entry == nil {
				entry = map[string]any{}
				nameservers[attr(nm, "name")] = entry
			}
			entry[testName] = status
		}
	}
	return map[string]any{
		"domain":      text(v[e+":domain"]),
		"status":      text(v[e+":status"]),
		"id":          text(v[e+":validationId"]),
		"date":        text(v[e+":validationDate"]),
		"nameservers": nameservers,
	}
}

// decodeObjectExtension handles the extension blocks of domain and
// contact replies.
func decodeObjectExtension(res, ext map[string]any, kind ObjectKind) {
	e := "extdom"
	if kind == KindContact {
		e = "extcon"
	}

	if v := asMap(ext[e+":trade"]); v != nil {
		tt := asMap(v[e+":transferTrade"])
		trn, _ := res["trnData"].(map[string]any)
		if trn == nil {
			trn = map[string]any{}
			res["trnData"] = trn
		}
		trn["newRegistrant"] = text(tt[e+":newRegistrant"])
		if na := asMap(tt[e+":newAuthInfo"]); na != nil {
			trn["newAuthInfo"] = text(na[e+":pw"])
		}
	}

	if v := asMap(ext[e+":infContactsData"]); v != nil {
		res["infContacts"] = decodeInfContacts(v, e)
	}

	if v := asMap(ext[e+":infData"]); v != nil {
		if s := asMap(v[e+":ownStatus"]); s != nil {
			res["ownStatus"] = attr(s, "s")
		}
		if c, ok := v[e+":consentForPublishing"]; ok {
			res["consentForPublishing"] = text(c)
		}
		if reg := asMap(v[e+":registrant"]); reg != nil {
			for key, val := range reg {
				if key != attrsKey {
					res[key] = val
				}
			}
		}
	}

	if v := asMap(ext[e+":infNsToValidateData"]); v != nil {
		var names []any
		if toValidate := asMap(v[e+":nsToValidate"]); toValidate != nil {
			for _, h := range asList(toValidate["domain:hostAttr"]) {
				if hm := asMap(h); hm != nil {
					names = append(names, text(hm["domain:hostName"]))
				}
			}
		}
		res["nsToValidate"] = names
	}

	if v := asMap(ext["secDNS:infData"]); v != nil {
		sec := secDNSField(res)
		sec["dsData"] = v["secDNS:dsData"]
	}
	if v := asMap(ext["extsecDNS:infDsOrKeyToValidateData"]); v != nil {
		sec := secDNSField(res)
		if ds := first(v, "extsecDNS:dsOrKeysToValidate", "secDNS:dsData"); ds != nil {
			sec["dsOrKeysToValidate"] = ds
		} else {
			sec["remAll"] = "true"
		}
	}
}

func secDNSField(res map[string]any) map[string]any {
	sec, _ := res["secDNS"].(map[string]any)
	if sec == nil {
		sec = map[string]any{}
		res["secDNS"] = sec
	}
	return sec
}

// decodeInfContacts splits the combined contact-details block into
// registrant/admin/tech sub-records, each flattened the same way an info
// reply's own contact data is.
func decodeInfContacts(v map[string]any, e string) map[string]any {
	out := map[string]any{}
	if reg := asMap(v[e+":registrant"]); reg != nil {
		out["registrant"] = flattenInfContact(reg, e, true)
	}
	for _, raw := range asList(v[e+":contact"]) {
		cm := asMap(raw)
		if cm == nil {
			continue
		}
		fc := flattenInfContact(cm, e, false)
		if attr(cm, "type") == "tech" {
			list, _ := out["tech"].([]any)
			out["tech"] = append(list, fc)
		} else if typ := attr(cm, "type"); typ != "" {
			out[typ] = fc
		}
	}
	return out
}

func flattenInfContact(m map[string]any, e string, registrant bool) map[string]any {
	fc := map[string]any{}
	for _, part := range []string{e + ":infContact", e + ":extInfo"} {
		for key, val := range asMap(m[part]) {
			if key != attrsKey {
				fc[key] = val
			}
		}
	}

	if raw, ok := fc["contact:status"]; ok {
		var statuses []string
		for _, s := range asList(raw) {
			if code := attr(asMap(s), "s"); code != "" {
				statuses = append(statuses, code)
			}
		}
		fc["contact:status"] = strings.Join(statuses, "/")
	}
	if v, ok := fc["contact:voice"]; ok {
		fc["contact:voice"] = telString(v)
	}
	if v, ok := fc["contact:fax"]; ok {
		fc["contact:fax"] = telString(v)
	}
	if pi := asMap(fc["contact:postalInfo"]); pi != nil {
		delete(pi, attrsKey)
		for key, val := range pi {
			fc[key] = val
		}
		if addr := asMap(pi["contact:addr"]); addr != nil {
			for key, val := range addr {
				if key != attrsKey {
					fc[key] = val
				}
			}
		}
		delete(fc, "contact:addr")
		delete(fc, "contact:postalInfo")
	}
	if registrant {
		if er := asMap(fc["extcon:registrant"]); er != nil {
			for key, val := range er {
				if key != attrsKey {
					fc[key] = val
				}
			}
			delete(fc, "extcon:registrant")
		}
	}
	return fc
}
