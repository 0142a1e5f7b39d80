package booking

// Normalize maps one raw payload to a canonical booking. It never fails:
// missing fields fall back to defaults and problems are recorded as anomalies.
// The input is not modified.
func Normalize(raw Raw) Booking {
	b := Booking{
		ID:               resolveText(raw, idStrategies, ""),
		RoomOrProduct:    resolveText(raw, roomStrategies, DefaultLabel),
		CustomerName:     resolveText(raw, customerStrategies, DefaultLabel),
		ParticipantCount: participantCount(raw),
	}
	if b.ID == "" {
		b.Anomalies = append(b.Anomalies, AnomalyMissingID)
	}

	gross, _, grossInvalid := resolveAmount(raw, grossStrategies)
	paid, _, paidInvalid := resolveAmount(raw, paidStrategies)
	if grossInvalid || paidInvalid {
		b.Anomalies = append(b.Anomalies, AnomalyInvalidAmount)
	}
	b.TotalGross = gross
	b.TotalPaid = paid
	b.Outstanding = gross.Sub(paid)

	if v, ok := lookup(raw, "canceled"); ok {
		if canceled, ok := v.(bool); ok {
			b.Canceled = canceled
		}
	}
	b.Status = Classify(b.Canceled, b.TotalGross, b.TotalPaid)

	event, eventOK := timestamp(raw, "startTime")
	created, createdOK := timestamp(raw, "creationTime")
	b.EventDate = event
	b.CreatedDate = created
	if !eventOK {
		b.Anomalies = append(b.Anomalies, AnomalyInvalidEventTime)
	}
	if !createdOK {
		b.Anomalies = append(b.Anomalies, AnomalyInvalidCreatedTime)
	}
	if eventOK && createdOK {
		b.LeadDays = leadDays(event, created)
		if b.LeadDays < 0 {
			b.Anomalies = append(b.Anomalies, AnomalyNegativeLeadTime)
		}
	}
	return b
}

// NormalizeAll normalizes a batch preserving input order.
func NormalizeAll(raws []Raw) []Booking {
	out := make([]Booking, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw))
	}
	return out
}

// PriceSource reports which strategy supplied the gross amount. The dashboard
// tallies it per fetch to show how the account shapes its payloads.
func PriceSource(raw Raw) string {
	_, source, _ := resolveAmount(raw, grossStrategies)
	return source
}
