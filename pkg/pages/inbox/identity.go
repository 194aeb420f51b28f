package inbox

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// DeriveConversationID produces an identifier for a conversation row.
// Priority: a stable page attribute when the row carries one, then a
// hash of the sender name, then a synthetic per-scan value. Only the
// first two are stable across scans; the caller needs to know which
// kind it got because synthetic IDs are useless as dedupe keys.
func DeriveConversationID(pageAttr, sender string, scanOrdinal int) (id string, stable bool) {
	if attr := strings.TrimSpace(pageAttr); attr != "" {
		return attr, true
	}
	if name := strings.TrimSpace(sender); name != "" {
		return senderHashID(name), true
	}
	return fmt.Sprintf("tmp%d", scanOrdinal), false
}

// senderHashID maps a sender name to a compact "c" + 6 digit ID. The
// same name always yields the same ID, which is what makes it usable as
// a dedupe key component.
func senderHashID(sender string) string {
	h := fnv.New32a()
	h.Write([]byte(sender))
	return fmt.Sprintf("c%06d", h.Sum32()%1000000)
}

// rowEligible applies the unread agreement rule: a row is only treated
// as unread when the unread marker is present and the read marker is
// absent. The two markers disagreeing means the list is mid-update and
// the row should be left for the next scan.
func rowEligible(hasUnreadMarker, hasReadMarker bool) bool {
	return hasUnreadMarker && !hasReadMarker
}
