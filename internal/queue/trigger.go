package queue

import (
	"fmt"
	"strings"
	"time"
)

// VisitChanged reports whether a visit write touched any field the queue
// depends on. Fields are compared by their string rendering, so a created
// or deleted visit (nil on one side) always counts as a change.
func VisitChanged(before, after *Visit) bool {
	if before == nil || after == nil {
		return before != after
	}
	return trackedFields(before) != trackedFields(after)
}

func trackedFields(v *Visit) [10]string {
	return [10]string{
		timeField(v.SlotTime),
		fmt.Sprint(v.TokenNo),
		string(v.Status),
		timeField(v.CheckInTime),
		timeField(v.ConsultationStartTime),
		timeField(v.ConsultationEndTime),
		intField(v.ConsultationMinutes),
		fmt.Sprint(v.LateLocked),
		strings.Join(v.LateAnchors, ","),
		string(v.Type),
	}
}

func timeField(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func intField(n *int) string {
	if n == nil {
		return ""
	}
	return fmt.Sprint(*n)
}
