package session

// ReloadReason tells a Reloader why the session asked to be rebuilt
type ReloadReason int

const (
	// ReloadAuthExpired follows a 401: the token was cleared
	ReloadAuthExpired ReloadReason = iota + 1
	// ReloadVersionSkew follows a uiVersion mismatch with the build baseline
	ReloadVersionSkew
)

func (r ReloadReason) String() string {
	switch r {
	case ReloadAuthExpired:
		return "auth_expired"
	case ReloadVersionSkew:
		return "version_skew"
	default:
		return "unknown"
	}
}

// Reloader is notified when the session must be discarded and rebuilt,
// the equivalent of a full page reload for a browser client.
type Reloader interface {
	Reload(reason ReloadReason)
}

// ReloaderFunc adapts a function to Reloader
type ReloaderFunc func(reason ReloadReason)

func (f ReloaderFunc) Reload(reason ReloadReason) {
	f(reason)
}

type noopReloader struct{}

func (noopReloader) Reload(ReloadReason) {}
