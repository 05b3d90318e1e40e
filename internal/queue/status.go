package queue

// NormalizeStatuses resets transient labels to each visit's baseline,
// promotes the head of the best-case queue to UpNext and re-affirms every
// visit currently in consultation. The lateLocked flag is never touched.
func NormalizeStatuses(visits []*Visit, best []*Visit, ps PatchSet) {
	for _, v := range visits {
		if v.Status.Terminal() || v.Status == StatusInConsultation {
			continue
		}
		ps.SetStatus(v.ID, baselineStatus(v))
	}

	for _, v := range best {
		if v.Status.Terminal() || v.Status == StatusInConsultation {
			continue
		}
		ps.SetStatus(v.ID, StatusUpNext)
		break
	}

	for _, v := range visits {
		if v.Status == StatusInConsultation {
			ps.SetStatus(v.ID, StatusInConsultation)
		}
	}
}

func baselineStatus(v *Visit) Status {
	switch {
	case v.CheckedIn():
		return StatusWaiting
	case v.Type == VisitWalkIn:
		return StatusWalkInBooked
	default:
		return StatusBooked
	}
}
