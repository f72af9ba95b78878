package engine

import "net/http"

// Default endpoints of the checking service
const (
	DefaultEndpoint = "wss://capi.grammarly.com/freews"
	DefaultAuthURL  = "https://auth.grammarly.com/v3/user/oranonymous"
)

// Profile is the client identity presented to the checking service
type Profile struct {
	ClientType    string `yaml:"client_type"`
	ClientVersion string `yaml:"client_version"`
	Origin        string `yaml:"origin"`
	UserAgent     string `yaml:"user_agent"`
	Cookie        string `yaml:"cookie"` // Persistent cookie prefix sent with every request
}

// DefaultProfile returns the identity of a freemium browser extension
func DefaultProfile() Profile {
	return Profile{
		ClientType:    "extension-firefox",
		ClientVersion: "8.852.2307",
		Origin:        "moz-extension://6adb0179-68f0-aa4f-8666-ae91f500210b",
		UserAgent:     "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_14_6) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/76.0.3809.100 Safari/537.36",
		Cookie:        "firefox_freemium=true; funnelType=free; browser_info=FIREFOX:67:COMPUTER:SUPPORTED:FREEMIUM:MAC_OS_X:MAC_OS_X;",
	}
}

// WithDefaults fills empty fields from DefaultProfile
func (p Profile) WithDefaults() Profile {
	d := DefaultProfile()
	if p.ClientType == "" {
		p.ClientType = d.ClientType
	}
	if p.ClientVersion == "" {
		p.ClientVersion = d.ClientVersion
	}
	if p.Origin == "" {
		p.Origin = d.Origin
	}
	if p.UserAgent == "" {
		p.UserAgent = d.UserAgent
	}
	if p.Cookie == "" {
		p.Cookie = d.Cookie
	}
	return p
}

// header returns the browser-like headers shared by the auth request and the
// websocket handshake
func (p Profile) header() http.Header {
	h := http.Header{}
	h.Set("Accept-Language", "en-GB,en-US;q=0.9,en;q=0.8")
	h.Set("Cache-Control", "no-cache")
	h.Set("Origin", p.Origin)
	h.Set("Pragma", "no-cache")
	h.Set("User-Agent", p.UserAgent)
	return h
}

// SocketHeader returns the websocket handshake headers carrying credential
func (p Profile) SocketHeader(credential string) http.Header {
	h := p.header()
	h.Set("Cookie", p.Cookie+credential)
	return h
}
