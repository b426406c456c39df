package core

// ProductRef identifies a product either by bare ID or by a full Record.
// Call sites must choose a variant explicitly via RefByID or RefByRecord;
// there is no implicit coercion between the two.
type ProductRef struct {
	id     string
	record *Record
}

// RefByID creates a ProductRef holding only an identifier.
func RefByID(id string) ProductRef {
	return ProductRef{id: id}
}

// RefByRecord creates a ProductRef holding a full record.
func RefByRecord(record *Record) ProductRef {
	return ProductRef{record: record}
}

// ID returns the referenced product's identifier, regardless of variant.
func (r ProductRef) ID() string {
	if r.record != nil {
		return r.record.Key
	}
	return r.id
}

// Record returns the full record and true when the ref holds one.
func (r ProductRef) Record() (*Record, bool) {
	return r.record, r.record != nil
}

// IsFull reports whether the ref carries a full record.
func (r ProductRef) IsFull() bool {
	return r.record != nil
}
