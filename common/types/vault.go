package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spacemeshos/go-scale"
)

// MaxBeneficiaries is the capacity of the beneficiary set of a single vault.
const MaxBeneficiaries = 5

// AssetLength is the maximal length of an asset ticker.
const AssetLength = 8

var (
	// ErrBeneficiaryExists is returned when address is already a member of the set.
	ErrBeneficiaryExists = errors.New("beneficiary exists")
	// ErrBeneficiaryMissing is returned when address is not a member of the set.
	ErrBeneficiaryMissing = errors.New("beneficiary missing")
	// ErrBeneficiariesFull is returned when the set is at capacity.
	ErrBeneficiariesFull = errors.New("beneficiaries set is full")
	// ErrInvalidAsset is returned when asset ticker can't be parsed.
	ErrInvalidAsset = errors.New("invalid asset")
)

// VaultID is an opaque unique identifier of the vault.
type VaultID [16]byte

// EmptyVaultID is a canonical empty VaultID.
var EmptyVaultID = VaultID{}

// ParseVaultID decodes id from the canonical uuid form.
func ParseVaultID(src string) (VaultID, error) {
	parsed, err := uuid.Parse(src)
	if err != nil {
		return VaultID{}, fmt.Errorf("parse vault id %q: %w", src, err)
	}
	return VaultID(parsed), nil
}

// String implements fmt.Stringer.
func (id VaultID) String() string {
	return uuid.UUID(id).String()
}

// Bytes returns id as a byte slice.
func (id VaultID) Bytes() []byte {
	return id[:]
}

// MarshalText implements encoding.TextMarshaler.
func (id VaultID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *VaultID) UnmarshalText(buf []byte) error {
	parsed, err := ParseVaultID(string(buf))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Asset identifies a fungible asset kind by its ticker.
type Asset [AssetLength]byte

// ParseAsset converts ticker such as "SMH" into Asset.
func ParseAsset(ticker string) (Asset, error) {
	var asset Asset
	if len(ticker) == 0 || len(ticker) > AssetLength {
		return asset, fmt.Errorf("%w: ticker %q must be 1-%d characters", ErrInvalidAsset, ticker, AssetLength)
	}
	for i := 0; i < len(ticker); i++ {
		c := ticker[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return asset, fmt.Errorf("%w: ticker %q contains %q", ErrInvalidAsset, ticker, c)
		}
	}
	copy(asset[:], ticker)
	return asset, nil
}

// MustParseAsset is ParseAsset that panics on error.
func MustParseAsset(ticker string) Asset {
	asset, err := ParseAsset(ticker)
	if err != nil {
		panic(err)
	}
	return asset
}

// IsEmpty is true if asset was not set.
func (a Asset) IsEmpty() bool {
	return a == Asset{}
}

// String returns the ticker.
func (a Asset) String() string {
	n := 0
	for n < len(a) && a[n] != 0 {
		n++
	}
	return string(a[:n])
}

// MarshalText implements encoding.TextMarshaler.
func (a Asset) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Asset) UnmarshalText(buf []byte) error {
	parsed, err := ParseAsset(string(buf))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// SettingsLock is a one-way latch over vault settings.
type SettingsLock uint8

const (
	// SettingsUnlocked allows owner to change settings and beneficiaries.
	SettingsUnlocked SettingsLock = iota
	// SettingsLocked is terminal.
	SettingsLocked
)

func (l SettingsLock) String() string {
	switch l {
	case SettingsUnlocked:
		return "unlocked"
	case SettingsLocked:
		return "locked"
	}
	return fmt.Sprintf("unknown(%d)", uint8(l))
}

// Settings are the mutable policy flags of the vault.
type Settings struct {
	Lock                     SettingsLock `json:"lock"`
	WithdrawableAmountStacks bool         `json:"withdrawable_amount_stacks"`
	AcceptsAdditionalFunds   bool         `json:"accepts_additional_funds"`
}

// Locked is true when settings can no longer be changed.
func (s Settings) Locked() bool {
	return s.Lock == SettingsLocked
}

// BeneficiarySet is a bounded set of addresses that are allowed to withdraw from the vault.
// The size of the set is always equal to the number of stored members.
type BeneficiarySet struct {
	members [MaxBeneficiaries]Address
	count   uint8
}

// NewBeneficiarySet creates a set from addresses. Duplicates and overflow are rejected.
func NewBeneficiarySet(addresses ...Address) (BeneficiarySet, error) {
	var set BeneficiarySet
	for _, addr := range addresses {
		if err := set.Add(addr); err != nil {
			return BeneficiarySet{}, err
		}
	}
	return set, nil
}

// Len returns number of members.
func (s *BeneficiarySet) Len() int {
	return int(s.count)
}

// Contains is true if address is a member.
func (s *BeneficiarySet) Contains(addr Address) bool {
	return s.index(addr) >= 0
}

func (s *BeneficiarySet) index(addr Address) int {
	for i := 0; i < int(s.count); i++ {
		if s.members[i] == addr {
			return i
		}
	}
	return -1
}

// Add appends address to the set.
func (s *BeneficiarySet) Add(addr Address) error {
	if s.Contains(addr) {
		return fmt.Errorf("%w: %s", ErrBeneficiaryExists, addr)
	}
	if int(s.count) == MaxBeneficiaries {
		return fmt.Errorf("%w: %d members", ErrBeneficiariesFull, s.count)
	}
	s.members[s.count] = addr
	s.count++
	return nil
}

// Remove deletes address from the set, preserving order of other members.
func (s *BeneficiarySet) Remove(addr Address) error {
	i := s.index(addr)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrBeneficiaryMissing, addr)
	}
	copy(s.members[i:], s.members[i+1:s.count])
	s.count--
	s.members[s.count] = Address{}
	return nil
}

// List returns a copy of the members.
func (s *BeneficiarySet) List() []Address {
	rst := make([]Address, s.count)
	copy(rst, s.members[:s.count])
	return rst
}

// MarshalJSON encodes set as a list of addresses.
func (s BeneficiarySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.List())
}

// UnmarshalJSON decodes set from a list of addresses.
func (s *BeneficiarySet) UnmarshalJSON(buf []byte) error {
	var addresses []Address
	if err := json.Unmarshal(buf, &addresses); err != nil {
		return err
	}
	set, err := NewBeneficiarySet(addresses...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

//go:generate scalegen -types Vault,Settings

// Vault is a custodial record that releases Balance to beneficiaries every Frequency layers.
type Vault struct {
	ID                       VaultID        `json:"id"`
	Owner                    Address        `json:"owner"`
	Asset                    Asset          `json:"asset"`
	Frequency                uint32         `json:"frequency"`
	AmountPerCycle           uint64         `json:"amount_per_cycle"`
	OwnerCanWithdrawAllFunds bool           `json:"owner_can_withdraw_all_funds"`
	Settings                 Settings       `json:"settings"`
	Beneficiaries            BeneficiarySet `json:"beneficiaries"`
	Balance                  uint64         `json:"balance"`
	StartLayer               LayerID        `json:"start_layer"`
	LastWithdrawLayer        LayerID        `json:"last_withdraw_layer"`
}

// Ended is true when all funds were released. Ended vault is inert.
func (v *Vault) Ended() bool {
	return v.Balance == 0
}

// IsOwner is true if address is the owner of the vault.
func (v *Vault) IsOwner(addr Address) bool {
	return v.Owner == addr
}

// Copy returns a deep copy of the vault. Vault has no reference fields.
func (v *Vault) Copy() *Vault {
	cp := *v
	return &cp
}

// MarshalText implements encoding.TextMarshaler.
func (l SettingsLock) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *SettingsLock) UnmarshalText(buf []byte) error {
	switch string(buf) {
	case "unlocked":
		*l = SettingsUnlocked
	case "locked":
		*l = SettingsLocked
	default:
		return fmt.Errorf("unknown settings lock %q", buf)
	}
	return nil
}

// EncodeScale implements scale codec interface.
func (s *BeneficiarySet) EncodeScale(e *scale.Encoder) (int, error) {
	total, err := scale.EncodeCompact8(e, s.count)
	if err != nil {
		return total, err
	}
	for i := 0; i < int(s.count); i++ {
		n, err := scale.EncodeByteArray(e, s.members[i][:])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (s *BeneficiarySet) DecodeScale(d *scale.Decoder) (int, error) {
	count, total, err := scale.DecodeCompact8(d)
	if err != nil {
		return total, err
	}
	*s = BeneficiarySet{}
	if int(count) > MaxBeneficiaries {
		return total, fmt.Errorf("%w: decoded %d members", ErrBeneficiariesFull, count)
	}
	for i := 0; i < int(count); i++ {
		var addr Address
		n, err := scale.DecodeByteArray(d, addr[:])
		if err != nil {
			return total, err
		}
		total += n
		if err := s.Add(addr); err != nil {
			return total, err
		}
	}
	return total, nil
}
