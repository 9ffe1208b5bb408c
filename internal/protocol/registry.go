package protocol

import "strings"

// ObjectKind selects the command family a payload belongs to. It is always
// carried explicitly; nothing in the client derives it from Go type names.
type ObjectKind string

const (
	KindSession ObjectKind = "session"
	KindContact ObjectKind = "contact"
	KindDomain  ObjectKind = "domain"
)

// Well-known namespace URIs used when a greeting has not been seen yet or
// omits an entry the encoder needs.
const (
	NSEpp       = "urn:ietf:params:xml:ns:epp-1.0"
	NSDomain    = "urn:ietf:params:xml:ns:domain-1.0"
	NSContact   = "urn:ietf:params:xml:ns:contact-1.0"
	NSRgp       = "urn:ietf:params:xml:ns:rgp-1.0"
	NSSecDNS    = "urn:ietf:params:xml:ns:secDNS-1.1"
	NSExtEpp    = "http://www.nic.it/ITNIC-EPP/extepp-2.0"
	NSExtDom    = "http://www.nic.it/ITNIC-EPP/extdom-2.0"
	NSExtCon    = "http://www.nic.it/ITNIC-EPP/extcon-1.0"
	NSExtSecDNS = "http://www.nic.it/ITNIC-EPP/extsecDNS-1.0"

	nsXSI = "http://www.w3.org/2001/XMLSchema-instance"
)

var defaultURIs = []string{
	NSEpp, NSDomain, NSContact, NSRgp, NSSecDNS,
	NSExtEpp, NSExtDom, NSExtCon, NSExtSecDNS,
}

// Namespace is one negotiated entry: the short key elements are prefixed
// with, the full URI and the schema file the server validates against.
type Namespace struct {
	Key       string
	URI       string
	SchemaLoc string
}

// Attrs returns the xmlns and xsi:schemaLocation attributes that qualify an
// element prefixed with this namespace's key.
func (ns Namespace) Attrs() []Attr {
	return []Attr{
		{Name: "xmlns:" + ns.Key, Value: ns.URI},
		{Name: "xsi:schemaLocation", Value: ns.SchemaLoc},
	}
}

// Greeting holds the fields of a server greeting the client acts on.
type Greeting struct {
	ServerID   string
	ServerDate string
	Version    string
	Languages  []string
	ObjURIs    []string
	ExtURIs    []string
}

// Registry maps short namespace keys to the attributes advertised by the
// server's greeting. Each session owns its registry; two sessions against
// different servers never share one.
type Registry struct {
	version string
	lang    string
	objURIs []string
	extURIs []string
	dnssec  bool
	byKey   map[string]Namespace
}

// NewRegistry builds a registry from the built-in namespace table, for use
// before any greeting has been received.
func NewRegistry(dnssec bool) *Registry {
	return NewRegistryFromGreeting(Greeting{}, dnssec)
}

// NewRegistryFromGreeting derives a registry from a decoded greeting. URIs
// not understood by the derivation are skipped; keys missing from the
// greeting fall back to the built-in table. When dnssec is false every
// DNSSEC namespace is filtered out on both the URI lists and the key table.
func NewRegistryFromGreeting(g Greeting, dnssec bool) *Registry {
	r := &Registry{
		version: g.Version,
		dnssec:  dnssec,
		byKey:   make(map[string]Namespace),
	}
	if r.version == "" {
		r.version = "1.0"
	}
	r.lang = "en"
	for _, l := range g.Languages {
		if l == "en" {
			r.lang = l
			break
		}
		r.lang = l
	}
	for _, uri := range defaultURIs {
		r.add(uri)
	}
	for _, uri := range g.ObjURIs {
		if r.add(uri) {
			r.objURIs = append(r.objURIs, uri)
		}
	}
	for _, uri := range g.ExtURIs {
		if !dnssec && isDNSSECURI(uri) {
			continue
		}
		if r.add(uri) {
			r.extURIs = append(r.extURIs, uri)
		}
	}
	if len(r.objURIs) == 0 {
		r.objURIs = []string{NSDomain, NSContact}
	}
	if len(r.extURIs) == 0 {
		r.extURIs = []string{NSRgp, NSExtEpp, NSExtDom, NSExtCon}
		if dnssec {
			r.extURIs = append(r.extURIs, NSSecDNS, NSExtSecDNS)
		}
	}
	return r
}

func (r *Registry) add(uri string) bool {
	key, seg, ok := deriveKey(uri)
	if !ok {
		return false
	}
	if !r.dnssec && isDNSSECURI(uri) {
		return false
	}
	r.byKey[key] = Namespace{Key: key, URI: uri, SchemaLoc: uri + " " + seg + ".xsd"}
	return true
}

// deriveKey reduces a namespace URI to its short key and schema segment:
// the last path (or colon) segment names the schema file, its leading
// hyphen-separated word is the key. "urn:ietf:params:xml:ns:domain-1.0"
// yields ("domain", "domain-1.0").
func deriveKey(uri string) (key, seg string, ok bool) {
	sep := ":"
	if strings.Contains(uri, "http") {
		sep = "/"
	}
	parts := strings.Split(uri, sep)
	seg = parts[len(parts)-1]
	if seg == "" {
		return "", "", false
	}
	key = strings.SplitN(seg, "-", 2)[0]
	if key == "" {
		return "", "", false
	}
	return key, seg, true
}

func isDNSSECURI(uri string) bool {
	_, seg, ok := deriveKey(uri)
	return ok && (strings.HasPrefix(seg, "secDNS") || strings.HasPrefix(seg, "extsecDNS"))
}

// Lookup returns the namespace for a short key. Keys the greeting did not
// carry resolve through the built-in table; unknown keys return ok=false.
func (r *Registry) Lookup(key string) (Namespace, bool) {
	ns, ok := r.byKey[key]
	return ns, ok
}

// Attrs returns the qualifying attributes for a key, or nil when the key is
// unknown (including DNSSEC keys on a session with DNSSEC disabled).
func (r *Registry) Attrs(key string) []Attr {
	ns, ok := r.byKey[key]
	if !ok {
		return nil
	}
	return ns.Attrs()
}

// Has reports whether the registry resolves the given key.
func (r *Registry) Has(key string) bool {
	_, ok := r.byKey[key]
	return ok
}

// Version returns the protocol version to log in with.
func (r *Registry) Version() string { return r.version }

// Language returns the negotiated language, preferring "en".
func (r *Registry) Language() string { return r.lang }

// ObjURIs returns the object URIs to echo in a login request.
func (r *Registry) ObjURIs() []string { return r.objURIs }

// ExtURIs returns the extension URIs to echo in a login request.
func (r *Registry) ExtURIs() []string { return r.extURIs }

// DNSSEC reports whether DNSSEC namespaces are active for this session.
func (r *Registry) DNSSEC() bool { return r.dnssec }

// EppAttrs returns the attributes of the document root element.
func (r *Registry) EppAttrs() []Attr {
	return []Attr{
		{Name: "xmlns", Value: NSEpp},
		{Name: "xmlns:xsi", Value: nsXSI},
		{Name: "xsi:schemaLocation", Value: NSEpp + " epp-1.0.xsd"},
	}
}
