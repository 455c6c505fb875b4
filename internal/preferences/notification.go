package preferences

import (
	"fmt"
	"strconv"
	"strings"
)

// NotificationType selects how a match is surfaced to the user.
//
// The integer values are the persisted encoding and must never be reordered.
type NotificationType int

const (
	IconOnly     NotificationType = 0
	Toast        NotificationType = 1
	OtherTab     NotificationType = 2
	Notification NotificationType = 3
)

var notificationMeta = [...]struct{ id, label string }{
	IconOnly:     {"iconOnly", "Icon only"},
	Toast:        {"toast", "In-page toast"},
	OtherTab:     {"otherTab", "Background tab"},
	Notification: {"notification", "Notification"},
}

// AllNotificationTypes lists the variants in encoding order.
func AllNotificationTypes() []NotificationType {
	return []NotificationType{IconOnly, Toast, OtherTab, Notification}
}

func (t NotificationType) Valid() bool {
	return t >= 0 && int(t) < len(notificationMeta)
}

// String returns the stable id, e.g. "otherTab".
func (t NotificationType) String() string {
	if !t.Valid() {
		return "NotificationType(" + strconv.Itoa(int(t)) + ")"
	}
	return notificationMeta[t].id
}

// Label is the human readable name shown by the options surface.
func (t NotificationType) Label() string {
	if !t.Valid() {
		return t.String()
	}
	return notificationMeta[t].label
}

// ParseNotificationTypeName accepts an id (case-insensitive) or its integer encoding.
func ParseNotificationTypeName(s string) (NotificationType, error) {
	s = strings.TrimSpace(s)
	for _, t := range AllNotificationTypes() {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && NotificationType(n).Valid() {
		return NotificationType(n), nil
	}
	return 0, fmt.Errorf("unknown notification type %q", s)
}
