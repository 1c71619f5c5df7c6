package enums

import "fmt"

// AccessLevel controls who may download a content item.
type AccessLevel string

const (
	AccessLevelPublic     AccessLevel = "public"
	AccessLevelRestricted AccessLevel = "restricted"
	AccessLevelPrivate    AccessLevel = "private"
)

var validAccessLevels = []AccessLevel{
	AccessLevelPublic,
	AccessLevelRestricted,
	AccessLevelPrivate,
}

func (a AccessLevel) String() string {
	return string(a)
}

func (a AccessLevel) IsValid() bool {
	for _, candidate := range validAccessLevels {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccessLevel converts raw input into an AccessLevel.
func ParseAccessLevel(value string) (AccessLevel, error) {
	for _, candidate := range validAccessLevels {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid access level %q", value)
}
