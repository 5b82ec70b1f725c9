package ledger

import "context"

// Op is one of the closed set of ledger mutations submitted for
// validation: CreateEntry, UpdateEntry, DeleteEntry, CreateLink and
// DeleteLink.
type Op interface {
	opName() string
}

type CreateEntry struct {
	Record Record
}

type UpdateEntry struct {
	Original Record
	Updated  Record
}

type DeleteEntry struct {
	Original Record
}

type CreateLink struct {
	Base   Hash
	Target Hash
	Type   LinkType
	Tag    []byte
}

type DeleteLink struct {
	Link Link
}

func (CreateEntry) opName() string { return "create entry" }
func (UpdateEntry) opName() string { return "update entry" }
func (DeleteEntry) opName() string { return "delete entry" }
func (CreateLink) opName() string  { return "create link" }
func (DeleteLink) opName() string  { return "delete link" }

type Verdict struct {
	valid  bool
	reason string
}

func Valid() Verdict {
	return Verdict{valid: true}
}

func Invalid(reason string) Verdict {
	return Verdict{reason: reason}
}

func (verdict Verdict) IsValid() bool {
	return verdict.valid
}

func (verdict Verdict) Reason() string {
	return verdict.reason
}

// RecordGetter is the read access a Validator gets to resolve
// dependencies of the op under validation.
type RecordGetter interface {
	Get(ctx context.Context, hash Hash) (*Record, error)
}

// Validator decides whether an op may be applied. Returning an error
// means the decision itself failed and aborts the op as a fault.
type Validator interface {
	Validate(ctx context.Context, op Op, records RecordGetter) (Verdict, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, op Op, records RecordGetter) (Verdict, error)

func (f ValidatorFunc) Validate(ctx context.Context, op Op, records RecordGetter) (Verdict, error) {
	return f(ctx, op, records)
}
