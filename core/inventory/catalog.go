package inventory

import (
	"fmt"
	"sort"
	"strconv"
)

// ContainerKind identifies a logical sub-container of a scope.
// Values follow the game's inventory type numbering where one exists.
type ContainerKind uint32

const (
	Bag0 ContainerKind = 0
	Bag1 ContainerKind = 1
	Bag2 ContainerKind = 2
	Bag3 ContainerKind = 3

	EquippedItems ContainerKind = 1000
	Currency      ContainerKind = 2000
	Crystals      ContainerKind = 2001

	ArmouryOffHand     ContainerKind = 3200
	ArmouryHead        ContainerKind = 3201
	ArmouryBody        ContainerKind = 3202
	ArmouryHands       ContainerKind = 3203
	ArmouryWaist       ContainerKind = 3204
	ArmouryLegs        ContainerKind = 3205
	ArmouryFeet        ContainerKind = 3206
	ArmouryEar         ContainerKind = 3207
	ArmouryNeck        ContainerKind = 3208
	ArmouryWrist       ContainerKind = 3209
	ArmouryRings       ContainerKind = 3300
	ArmourySoulCrystal ContainerKind = 3400
	ArmouryMainHand    ContainerKind = 3500

	SaddleBag0        ContainerKind = 4000
	SaddleBag1        ContainerKind = 4001
	PremiumSaddleBag0 ContainerKind = 4100
	PremiumSaddleBag1 ContainerKind = 4101

	RetainerPage1         ContainerKind = 10000
	RetainerPage2         ContainerKind = 10001
	RetainerPage3         ContainerKind = 10002
	RetainerPage4         ContainerKind = 10003
	RetainerPage5         ContainerKind = 10004
	RetainerPage6         ContainerKind = 10005
	RetainerPage7         ContainerKind = 10006
	RetainerEquippedItems ContainerKind = 11000
	RetainerGil           ContainerKind = 12000
	RetainerCrystals      ContainerKind = 12001
	RetainerMarket        ContainerKind = 12002

	FreeCompanyPage1    ContainerKind = 20000
	FreeCompanyPage2    ContainerKind = 20001
	FreeCompanyPage3    ContainerKind = 20002
	FreeCompanyPage4    ContainerKind = 20003
	FreeCompanyPage5    ContainerKind = 20004
	FreeCompanyGil      ContainerKind = 22000
	FreeCompanyCrystals ContainerKind = 22001

	// The glamour chest and armoire are not inventory types in the game; they are
	// read from their own caches and get ids outside the game's range.
	GlamourChest ContainerKind = 30000
	Armoire      ContainerKind = 30001
)

// ContainerInfo describes one container kind.
type ContainerInfo struct {
	Kind  ContainerKind
	Name  string
	Scope ScopeKind
	Slots int
}

var catalog = []ContainerInfo{
	{Bag0, "bag0", ScopeCharacter, 35},
	{Bag1, "bag1", ScopeCharacter, 35},
	{Bag2, "bag2", ScopeCharacter, 35},
	{Bag3, "bag3", ScopeCharacter, 35},
	{EquippedItems, "equipped", ScopeCharacter, 14},
	{Currency, "currency", ScopeCharacter, 100},
	{Crystals, "crystals", ScopeCharacter, 18},
	{ArmouryOffHand, "armoury_off_hand", ScopeCharacter, 35},
	{ArmouryHead, "armoury_head", ScopeCharacter, 35},
	{ArmouryBody, "armoury_body", ScopeCharacter, 35},
	{ArmouryHands, "armoury_hands", ScopeCharacter, 35},
	{ArmouryWaist, "armoury_waist", ScopeCharacter, 35},
	{ArmouryLegs, "armoury_legs", ScopeCharacter, 35},
	{ArmouryFeet, "armoury_feet", ScopeCharacter, 35},
	{ArmouryEar, "armoury_ear", ScopeCharacter, 35},
	{ArmouryNeck, "armoury_neck", ScopeCharacter, 35},
	{ArmouryWrist, "armoury_wrist", ScopeCharacter, 35},
	{ArmouryRings, "armoury_rings", ScopeCharacter, 50},
	{ArmourySoulCrystal, "armoury_soul_crystal", ScopeCharacter, 25},
	{ArmouryMainHand, "armoury_main_hand", ScopeCharacter, 50},
	{SaddleBag0, "saddlebag0", ScopeCharacter, 35},
	{SaddleBag1, "saddlebag1", ScopeCharacter, 35},
	{PremiumSaddleBag0, "premium_saddlebag0", ScopeCharacter, 35},
	{PremiumSaddleBag1, "premium_saddlebag1", ScopeCharacter, 35},
	{GlamourChest, "glamour_chest", ScopeCharacter, 800},
	{Armoire, "armoire", ScopeCharacter, 800},
	{RetainerPage1, "retainer_page1", ScopeRetainer, 25},
	{RetainerPage2, "retainer_page2", ScopeRetainer, 25},
	{RetainerPage3, "retainer_page3", ScopeRetainer, 25},
	{RetainerPage4, "retainer_page4", ScopeRetainer, 25},
	{RetainerPage5, "retainer_page5", ScopeRetainer, 25},
	{RetainerPage6, "retainer_page6", ScopeRetainer, 25},
	{RetainerPage7, "retainer_page7", ScopeRetainer, 25},
	{RetainerEquippedItems, "retainer_equipped", ScopeRetainer, 14},
	{RetainerGil, "retainer_gil", ScopeRetainer, 1},
	{RetainerCrystals, "retainer_crystals", ScopeRetainer, 18},
	{RetainerMarket, "retainer_market", ScopeRetainer, 20},
	{FreeCompanyPage1, "fc_page1", ScopeFreeCompany, 50},
	{FreeCompanyPage2, "fc_page2", ScopeFreeCompany, 50},
	{FreeCompanyPage3, "fc_page3", ScopeFreeCompany, 50},
	{FreeCompanyPage4, "fc_page4", ScopeFreeCompany, 50},
	{FreeCompanyPage5, "fc_page5", ScopeFreeCompany, 50},
	{FreeCompanyGil, "fc_gil", ScopeFreeCompany, 11},
	{FreeCompanyCrystals, "fc_crystals", ScopeFreeCompany, 18},
}

var (
	byKind = make(map[ContainerKind]ContainerInfo, len(catalog))
	byName = make(map[string]ContainerInfo, len(catalog))
)

func init() {
	for _, info := range catalog {
		byKind[info.Kind] = info
		byName[info.Name] = info
	}
}

// Lookup returns the catalog entry of a container kind.
func Lookup(kind ContainerKind) (ContainerInfo, bool) {
	info, ok := byKind[kind]
	return info, ok
}

// ParseContainerKind resolves a catalog name ("bag0") or a numeric id ("10002").
func ParseContainerKind(raw string) (ContainerKind, error) {
	if info, ok := byName[raw]; ok {
		return info.Kind, nil
	}
	if n, err := strconv.ParseUint(raw, 10, 32); err == nil {
		if _, ok := byKind[ContainerKind(n)]; ok {
			return ContainerKind(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownContainer, raw)
}

// KindsFor returns the container kinds owned by a scope kind, in ascending order.
func KindsFor(scope ScopeKind) []ContainerKind {
	var kinds []ContainerKind
	for _, info := range catalog {
		if info.Scope == scope {
			kinds = append(kinds, info.Kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// SlotCount returns the fixed slot count of a container kind, or zero if unknown.
func (k ContainerKind) SlotCount() int {
	return byKind[k].Slots
}

func (k ContainerKind) String() string {
	if info, ok := byKind[k]; ok {
		return info.Name
	}
	return strconv.FormatUint(uint64(k), 10)
}

// MarshalText encodes the kind by catalog name.
func (k ContainerKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts a catalog name or numeric id.
func (k *ContainerKind) UnmarshalText(b []byte) error {
	parsed, err := ParseContainerKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
