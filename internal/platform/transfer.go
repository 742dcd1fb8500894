package platform

import (
	"context"
	"slices"
	"time"

	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
)

// personaTimeout bounds the external user name lookup.
const personaTimeout = 5 * time.Second

// Identity identifies the user a save belongs to, as the game records it in
// owner records: user id, local id, user name and platform token.
type Identity struct {
	UID string
	LID string
	USN string
	PTK string
}

// IsZero reports whether no field is set.
func (id Identity) IsZero() bool { return id == Identity{} }

// merge fills the empty fields of id from o.
func (id Identity) merge(o Identity) Identity {
	if id.UID == "" {
		id.UID = o.UID
	}
	if id.LID == "" {
		id.LID = o.LID
	}
	if id.USN == "" {
		id.USN = o.USN
	}
	if id.PTK == "" {
		id.PTK = o.PTK
	}
	return id
}

// TransferBase is one base of the transferred slot and its owner.
type TransferBase struct {
	Name      string
	Type      string
	Owner     Identity
	MetaIndex int
}

// TransferData is everything Transfer needs from a source slot.
type TransferData struct {
	Source     Kind
	SlotIndex  int
	Containers []*container.Container
	// Missing lists the halves of the source slot that hold no save. The
	// same halves of the destination slot are deleted.
	Missing    []container.SaveType
	Identity   Identity
	Bases      []TransferBase

	// Decisions holds, per foreign user id, whether bases owned by that user
	// are rewritten to the destination user too.
	Decisions map[string]bool
}

// UserIDs returns the distinct owner ids of the listed bases.
func (d *TransferData) UserIDs() []string {
	var ids []string
	for _, b := range d.Bases {
		if b.Owner.UID != "" && !slices.Contains(ids, b.Owner.UID) {
			ids = append(ids, b.Owner.UID)
		}
	}
	slices.Sort(ids)
	return ids
}

// GetSourceTransferData collects the existing containers of a slot with
// their owner identity and bases. Existing containers must be loaded.
func (p *Platform) GetSourceTransferData(slotIndex int) (*TransferData, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	auto, manual, err := p.slotLocked(slotIndex)
	if err != nil {
		return nil, err
	}
	data := &TransferData{
		Source:    p.hooks.Kind(),
		SlotIndex: slotIndex,
		Decisions: make(map[string]bool),
	}
	for _, c := range []*container.Container{auto, manual} {
		if !c.Exists() {
			data.Missing = append(data.Missing, c.SaveType())
			continue
		}
		if err := p.checkSource(c); err != nil {
			return nil, err
		}
		data.Containers = append(data.Containers, c)
		for _, b := range basesOf(c.JSON()) {
			b.MetaIndex = c.MetaIndex()
			data.Bases = append(data.Bases, b)
		}
	}
	if len(data.Containers) == 0 {
		return nil, errors.Aborted("slot %d has no saves", slotIndex+1)
	}
	data.Identity = p.resolveIdentity(data.Containers)
	return data, nil
}

// PrepareTransferDestination resolves the user of this platform that
// transferred bases will be owned by. It must run before Transfer.
func (p *Platform) PrepareTransferDestination(slotIndex int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, _, err := p.slotLocked(slotIndex); err != nil {
		return err
	}
	var loaded []*container.Container
	for _, c := range p.saves {
		if c.IsLoaded() {
			loaded = append(loaded, c)
		}
	}
	id := p.resolveIdentity(loaded)
	if id.UID == "" {
		return errors.Aborted("user of %s could not be identified", p.root)
	}
	p.destination = &id
	p.destinationSlot = slotIndex
	return nil
}

// TransferDecisions returns the foreign user ids that own bases in data and
// have no decision yet.
func (p *Platform) TransferDecisions(data *TransferData) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pendingDecisions(data)
}

func (p *Platform) pendingDecisions(data *TransferData) []string {
	var pending []string
	for _, uid := range data.UserIDs() {
		if uid == data.Identity.UID {
			continue
		}
		if p.destination != nil && uid == p.destination.UID {
			continue
		}
		if _, ok := data.Decisions[uid]; ok {
			continue
		}
		pending = append(pending, uid)
	}
	return pending
}

// Transfer copies the source slot into slotIndex of this platform and
// rewrites the owner of every base owned by the source user, or by a
// foreign user decided true, to the destination user. A destination save
// whose source half is empty is deleted, as Copy does. When decisions are
// missing nothing changes and the pending user ids are returned with an
// aborted error.
func (p *Platform) Transfer(data *TransferData, slotIndex int) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if data == nil || len(data.Containers) == 0 {
		return nil, errors.Aborted("no transfer data")
	}
	if p.destination == nil || p.destinationSlot != slotIndex {
		return nil, errors.Aborted("destination slot %d is not prepared", slotIndex+1)
	}
	if pending := p.pendingDecisions(data); len(pending) > 0 {
		return pending, errors.Aborted("%d ownership decisions pending", len(pending))
	}
	auto, manual, err := p.slotLocked(slotIndex)
	if err != nil {
		return nil, err
	}
	for _, src := range data.Containers {
		if !src.IsLoaded() {
			return nil, errors.Aborted("%s is not loaded", src)
		}
	}

	half := func(t container.SaveType) *container.Container {
		if t == container.Manual {
			return manual
		}
		return auto
	}

	p.pauseWatcher()
	defer p.resumeWatcher()

	dest := *p.destination
	for _, src := range data.Containers {
		dst := half(src.SaveType())
		tree := src.JSON()
		n := rewriteOwners(tree, data.Identity.UID, dest, data.Decisions)

		s := snapshot{exists: true, extra: src.Extra(), payload: tree, order: src.KeyOrder()}
		if data.Source != p.hooks.Kind() {
			s.extra.MetaLength = 0
			s.extra.Bytes = nil
			s.extra.SaveWizard = false
		}
		if err := p.apply(s, dst); err != nil {
			return nil, err
		}
		p.logger.Info("slot transferred",
			"from", src.Identifier(), "to", dst.Identifier(),
			"source", data.Source.String(), "owners_rewritten", n)
	}
	for _, t := range data.Missing {
		if err := p.apply(snapshot{}, half(t)); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// resolveIdentity combines what the hooks know with the owner records of
// the given containers and the optional external name lookup.
func (p *Platform) resolveIdentity(cs []*container.Container) Identity {
	id := p.hooks.Identity(p)
	if id.PTK == "" {
		id.PTK = p.hooks.Kind().UserTag()
	}

	counts := make(map[string]int)
	var owners []Identity
	for _, c := range cs {
		for _, b := range basesOf(c.JSON()) {
			o := b.Owner
			if o.UID == "" || (o.PTK != "" && o.PTK != id.PTK) {
				continue
			}
			if id.UID != "" && o.UID != id.UID {
				continue
			}
			if counts[o.UID] == 0 {
				owners = append(owners, o)
			}
			counts[o.UID]++
		}
	}
	best := -1
	for i, o := range owners {
		if best < 0 || counts[o.UID] > counts[owners[best].UID] {
			best = i
		}
	}
	if best >= 0 {
		id = id.merge(owners[best])
	}

	if id.USN == "" && id.UID != "" && p.resolver != nil && p.settings.UseExternalSourcesForUserIdentification {
		ctx, cancel := context.WithTimeout(context.Background(), personaTimeout)
		id.USN = p.resolver.PersonaName(ctx, id.UID)
		cancel()
	}
	return id
}

// basesOf lists the bases in a payload.
func basesOf(tree map[string]any) []TransferBase {
	list, ok := baseList(tree)
	if !ok {
		return nil
	}
	var out []TransferBase
	for _, item := range list {
		base, ok := item.(map[string]any)
		if !ok {
			continue
		}
		b := TransferBase{Name: stringAt(base, "Name")}
		if t, ok := container.Lookup(base, "BaseType"); ok {
			if tm, ok := t.(map[string]any); ok {
				b.Type = stringAt(tm, "PersistentBaseTypes")
			}
		}
		if o, ok := container.Lookup(base, "Owner"); ok {
			if om, ok := o.(map[string]any); ok {
				b.Owner = Identity{
					UID: stringAt(om, "UID"),
					LID: stringAt(om, "LID"),
					USN: stringAt(om, "USN"),
					PTK: stringAt(om, "PTK"),
				}
			}
		}
		out = append(out, b)
	}
	return out
}

// rewriteOwners replaces the owner of every base owned by sourceUID, or by
// a user decided true, with dest. It returns the number of bases changed.
func rewriteOwners(tree map[string]any, sourceUID string, dest Identity, decisions map[string]bool) int {
	list, ok := baseList(tree)
	if !ok {
		return 0
	}
	n := 0
	for _, item := range list {
		base, ok := item.(map[string]any)
		if !ok {
			continue
		}
		o, ok := container.Lookup(base, "Owner")
		if !ok {
			continue
		}
		owner, ok := o.(map[string]any)
		if !ok {
			continue
		}
		uid := stringAt(owner, "UID")
		if uid == "" || (uid != sourceUID && !decisions[uid]) {
			continue
		}
		setString(owner, "UID", dest.UID)
		setString(owner, "LID", dest.LID)
		setString(owner, "USN", dest.USN)
		setString(owner, "PTK", dest.PTK)
		n++
	}
	return n
}

func baseList(tree map[string]any) ([]any, bool) {
	if tree == nil {
		return nil, false
	}
	ps, ok := container.Lookup(tree, "PlayerStateData")
	if !ok {
		return nil, false
	}
	psm, ok := ps.(map[string]any)
	if !ok {
		return nil, false
	}
	bases, ok := container.Lookup(psm, "PersistentPlayerBases")
	if !ok {
		return nil, false
	}
	list, ok := bases.([]any)
	return list, ok
}

func stringAt(m map[string]any, name string) string {
	v, ok := container.Lookup(m, name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// setString sets a field under whichever key form the map already uses.
func setString(m map[string]any, name, value string) {
	key, ok := container.ResolveKey(m, name)
	if !ok {
		key = name
	}
	m[key] = value
}
