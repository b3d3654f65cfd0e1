package events

import (
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/go-vault/common/types"
)

// EventType names the kind of state change.
type EventType string

const (
	TypeVaultCreated       EventType = "Vault Created"
	TypeBeneficiaryAdded   EventType = "Beneficiary Added"
	TypeBeneficiaryRemoved EventType = "Beneficiary Removed"
	TypeDeposited          EventType = "Deposited"
	TypeWithdrawn          EventType = "Withdrawn"
	TypeEnded              EventType = "Ended"
	TypeSettingsLocked     EventType = "Settings Locked"
	TypeSettingsUpdated    EventType = "Settings Updated"
)

// Event is a notification about committed change of the vault.
type Event struct {
	Type    EventType     `json:"type"`
	Vault   types.VaultID `json:"vault"`
	Layer   types.LayerID `json:"layer"`
	Details Details       `json:"details"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (ev *Event) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("type", string(ev.Type))
	encoder.AddString("vault", ev.Vault.String())
	encoder.AddUint32("layer", ev.Layer.Uint32())
	if ev.Details != nil {
		return encoder.AddObject("details", ev.Details)
	}
	return nil
}

// Details is a payload specific to the event type.
type Details interface {
	zapcore.ObjectMarshaler
	eventType() EventType
}

func newEvent(id types.VaultID, layer types.LayerID, details Details) Event {
	return Event{Type: details.eventType(), Vault: id, Layer: layer, Details: details}
}

type VaultCreated struct {
	Owner types.Address `json:"owner"`
}

func (VaultCreated) eventType() EventType { return TypeVaultCreated }

func (ev VaultCreated) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("owner", ev.Owner.String())
	return nil
}

// NewVaultCreated creates event published when vault is created.
func NewVaultCreated(id types.VaultID, layer types.LayerID, owner types.Address) Event {
	return newEvent(id, layer, VaultCreated{Owner: owner})
}

type BeneficiaryAdded struct {
	Address types.Address `json:"address"`
}

func (BeneficiaryAdded) eventType() EventType { return TypeBeneficiaryAdded }

func (ev BeneficiaryAdded) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("address", ev.Address.String())
	return nil
}

func NewBeneficiaryAdded(id types.VaultID, layer types.LayerID, addr types.Address) Event {
	return newEvent(id, layer, BeneficiaryAdded{Address: addr})
}

type BeneficiaryRemoved struct {
	Address types.Address `json:"address"`
}

func (BeneficiaryRemoved) eventType() EventType { return TypeBeneficiaryRemoved }

func (ev BeneficiaryRemoved) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("address", ev.Address.String())
	return nil
}

func NewBeneficiaryRemoved(id types.VaultID, layer types.LayerID, addr types.Address) Event {
	return newEvent(id, layer, BeneficiaryRemoved{Address: addr})
}

type Deposited struct {
	From   types.Address `json:"from"`
	Amount uint64        `json:"amount"`
}

func (Deposited) eventType() EventType { return TypeDeposited }

func (ev Deposited) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("from", ev.From.String())
	encoder.AddUint64("amount", ev.Amount)
	return nil
}

func NewDeposited(id types.VaultID, layer types.LayerID, from types.Address, amount uint64) Event {
	return newEvent(id, layer, Deposited{From: from, Amount: amount})
}

// Withdrawn is published for every payout. Cycles is zero for withdrawal of all funds.
type Withdrawn struct {
	Beneficiary types.Address `json:"beneficiary"`
	Amount      uint64        `json:"amount"`
	Cycles      uint64        `json:"cycles"`
	From        types.LayerID `json:"from"`
	To          types.LayerID `json:"to"`
}

func (Withdrawn) eventType() EventType { return TypeWithdrawn }

func (ev Withdrawn) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("beneficiary", ev.Beneficiary.String())
	encoder.AddUint64("amount", ev.Amount)
	encoder.AddUint64("cycles", ev.Cycles)
	encoder.AddUint32("from", ev.From.Uint32())
	encoder.AddUint32("to", ev.To.Uint32())
	return nil
}

func NewWithdrawn(id types.VaultID, layer types.LayerID, details Withdrawn) Event {
	return newEvent(id, layer, details)
}

type Ended struct{}

func (Ended) eventType() EventType { return TypeEnded }

func (Ended) MarshalLogObject(zapcore.ObjectEncoder) error { return nil }

func NewEnded(id types.VaultID, layer types.LayerID) Event {
	return newEvent(id, layer, Ended{})
}

type SettingsLocked struct {
	Owner types.Address `json:"owner"`
}

func (SettingsLocked) eventType() EventType { return TypeSettingsLocked }

func (ev SettingsLocked) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddString("owner", ev.Owner.String())
	return nil
}

func NewSettingsLocked(id types.VaultID, layer types.LayerID, owner types.Address) Event {
	return newEvent(id, layer, SettingsLocked{Owner: owner})
}

type SettingsUpdated struct {
	NewStacks  bool `json:"new_stacks"`
	NewAccepts bool `json:"new_accepts"`
	OldStacks  bool `json:"old_stacks"`
	OldAccepts bool `json:"old_accepts"`
}

func (SettingsUpdated) eventType() EventType { return TypeSettingsUpdated }

func (ev SettingsUpdated) MarshalLogObject(encoder zapcore.ObjectEncoder) error {
	encoder.AddBool("new_stacks", ev.NewStacks)
	encoder.AddBool("new_accepts", ev.NewAccepts)
	encoder.AddBool("old_stacks", ev.OldStacks)
	encoder.AddBool("old_accepts", ev.OldAccepts)
	return nil
}

func NewSettingsUpdated(id types.VaultID, layer types.LayerID, old, updated types.Settings) Event {
	return newEvent(id, layer, SettingsUpdated{
		NewStacks:  updated.WithdrawableAmountStacks,
		NewAccepts: updated.AcceptsAdditionalFunds,
		OldStacks:  old.WithdrawableAmountStacks,
		OldAccepts: old.AcceptsAdditionalFunds,
	})
}
