// ABOUTME: Version and product identification
// ABOUTME: Reported by the imaqt CLI and the relay
package version

// Version is overridden at build time with -ldflags "-X .../version.Version=..."
var Version = "0.3.0"

const (
	Product      = "imaqt"
	Manufacturer = "Sendspin"
)

// String returns "product version"
func String() string {
	return Product + " " + Version
}
