// Package entity contains the core business objects of the project.
package entity

// Provider represents a supported third-party identity provider.
type Provider string

const (
	// ProviderApple indicates a login through Apple's identity token flow.
	ProviderApple Provider = "apple"
	// ProviderKakao indicates a login through Kakao's access token flow.
	ProviderKakao Provider = "kakao"
)

// String returns the string representation of the Provider.
func (p Provider) String() string {
	return string(p)
}

// IsValid checks if the Provider is a valid value.
func (p Provider) IsValid() bool {
	switch p {
	case ProviderApple, ProviderKakao:
		return true
	default:
		return false
	}
}
