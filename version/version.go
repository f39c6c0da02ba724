package version

// UIVersionPlaceholder is the baseline of an unversioned (development)
// build. Sessions built with it never report version skew.
const UIVersionPlaceholder = "IPOS_UI_VERSION"

var (
	// Version is the semantic version of this client.
	Version string = SemVer

	// GitCommit is set at build time.
	GitCommit string

	// UIVersion is the build-time UI version baseline, set with
	// -ldflags "-X github.com/denysvitali/ipos-browser-go/version.UIVersion=2024-01-02T15:04:05Z".
	UIVersion string = UIVersionPlaceholder

	UserAgent string
)

func init() {
	UserAgent = "ipos-browser-go/" + Version
	if GitCommit != "" {
		Version += "-" + GitCommit
		UserAgent += "/" + GitCommit
	}
}

const (
	SemVer = "0.1.0"
)
