// Package access decides which roles may run which operations on which records.
package access

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/giftledger-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
)

type Operation string

const (
	OpOrderCreate    Operation = "order.create"
	OpOrderRead      Operation = "order.read"
	OpOrderUpdate    Operation = "order.update"
	OpOrderDelete    Operation = "order.delete"
	OpSupplierCreate Operation = "supplier.create"
	OpSupplierUpdate Operation = "supplier.update"
	OpSupplierRead   Operation = "supplier.read"
	OpBalanceAdjust  Operation = "balance.adjust"
	OpBalanceLogRead Operation = "balance_log.read"
	OpStatsRead      Operation = "stats.read"
	OpPlayerVerify   Operation = "player.verify"
	OpOrderReassign  Operation = "order.reassign"
)

type grant int

const (
	grantNone grant = iota
	// grantOwn allows the operation on records of the subject's own supplier.
	grantOwn
	grantAny
)

var capabilities = map[Operation]map[enums.Role]grant{
	OpOrderCreate:    {enums.RoleAdmin: grantAny},
	OpOrderRead:      {enums.RoleAdmin: grantAny, enums.RoleViewer: grantAny, enums.RoleSupplier: grantOwn},
	OpOrderUpdate:    {enums.RoleAdmin: grantAny, enums.RoleSupplier: grantOwn},
	OpOrderReassign:  {enums.RoleAdmin: grantAny},
	OpOrderDelete:    {enums.RoleAdmin: grantAny},
	OpSupplierCreate: {enums.RoleAdmin: grantAny},
	OpSupplierUpdate: {enums.RoleAdmin: grantAny},
	OpSupplierRead:   {enums.RoleAdmin: grantAny, enums.RoleViewer: grantAny, enums.RoleSupplier: grantOwn},
	OpBalanceAdjust:  {enums.RoleAdmin: grantAny, enums.RoleSupplier: grantOwn},
	OpBalanceLogRead: {enums.RoleAdmin: grantAny, enums.RoleViewer: grantAny, enums.RoleSupplier: grantOwn},
	OpStatsRead:      {enums.RoleAdmin: grantAny},
	OpPlayerVerify:   {enums.RoleAdmin: grantAny},
}

// supplierStatuses are the only statuses a supplier may move their orders into.
var supplierStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusFollowed:        true,
	enums.OrderStatusReadyForGifting: true,
	enums.OrderStatusCompleted:       true,
	enums.OrderStatusFailed:          true,
}

// Subject is the authenticated caller.
type Subject struct {
	UserID     uuid.UUID
	Role       enums.Role
	SupplierID *uuid.UUID
}

// Resource describes the record an operation touches. SupplierID is the owning
// supplier; TargetStatus is the requested order status, if any.
type Resource struct {
	SupplierID   *uuid.UUID
	TargetStatus *enums.OrderStatus
}

type Outcome int

const (
	Allowed Outcome = iota
	Unauthenticated
	Forbidden
	// OutOfScope hides records owned by another supplier.
	OutOfScope
)

type Decision struct {
	Outcome Outcome
	Reason  string
}

func (d Decision) Allowed() bool {
	return d.Outcome == Allowed
}

// Err translates a denial into the public error taxonomy. Allowed yields nil.
func (d Decision) Err() error {
	switch d.Outcome {
	case Allowed:
		return nil
	case Unauthenticated:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, d.Reason)
	case OutOfScope:
		return pkgerrors.New(pkgerrors.CodeNotFound, d.Reason)
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, d.Reason)
	}
}

func allow() Decision { return Decision{Outcome: Allowed} }

func deny(outcome Outcome, reason string) Decision {
	return Decision{Outcome: outcome, Reason: reason}
}

// Authorize evaluates op for subject against res.
func Authorize(subject *Subject, op Operation, res Resource) Decision {
	if subject == nil || subject.UserID == uuid.Nil {
		return deny(Unauthenticated, "authentication required")
	}

	switch capabilities[op][subject.Role] {
	case grantAny:
		return allow()
	case grantOwn:
		if subject.SupplierID == nil {
			return deny(Forbidden, "no supplier profile linked to this account")
		}
		if res.SupplierID != nil && *res.SupplierID != *subject.SupplierID {
			return deny(OutOfScope, notFoundReason(op))
		}
		if op == OpOrderUpdate && res.TargetStatus != nil && !supplierStatuses[*res.TargetStatus] {
			return deny(Forbidden, "suppliers cannot set status "+res.TargetStatus.String())
		}
		return allow()
	default:
		return deny(Forbidden, "insufficient permissions")
	}
}

// Scope returns the supplier filter that must be forced onto list queries for
// subject, or nil when the subject may see every supplier's records.
func Scope(subject *Subject) *uuid.UUID {
	if subject == nil || subject.Role != enums.RoleSupplier {
		return nil
	}
	if subject.SupplierID == nil {
		// matches nothing
		nilID := uuid.Nil
		return &nilID
	}
	id := *subject.SupplierID
	return &id
}

// SupplierStatuses lists the statuses a supplier may request.
func SupplierStatuses() []enums.OrderStatus {
	out := make([]enums.OrderStatus, 0, len(supplierStatuses))
	for _, s := range enums.OrderStatuses() {
		if supplierStatuses[s] {
			out = append(out, s)
		}
	}
	return out
}

func notFoundReason(op Operation) string {
	switch op {
	case OpSupplierRead, OpBalanceAdjust:
		return "supplier not found"
	case OpBalanceLogRead:
		return "balance logs not found"
	default:
		return "order not found"
	}
}
