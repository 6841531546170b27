package whatsapp

import (
	"context"
	"fmt"
	"strings"
)

// Group participant actions accepted by UpdateGroupParticipants.
const (
	GroupActionAdd     = "add"
	GroupActionRemove  = "remove"
	GroupActionPromote = "promote"
	GroupActionDemote  = "demote"
)

// Group settings accepted by ChangeGroupSettings.
const (
	GroupSettingAnnouncement    = "announcement"
	GroupSettingNotAnnouncement = "not_announcement"
	GroupSettingLocked          = "locked"
	GroupSettingUnlocked        = "unlocked"
)

// knownGroup gates group operations on the chat cache, so a bad group ID
// fails fast without a network round trip.
func (ins *Instance) knownGroup(gid string) bool {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.chatIndex(gid) >= 0
}

// GetAllGroups returns the cached group chats.
func (ins *Instance) GetAllGroups() []Chat {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	var groups []Chat
	for _, chat := range ins.chats {
		if strings.HasSuffix(chat.ID, GroupSuffix) {
			groups = append(groups, chat)
		}
	}
	return groups
}

// GetGroupInfo fetches group metadata for a cached group. With raiseErr
// false an unknown group yields a nil result instead of an error, and a
// failed metadata fetch is treated like an unknown group. At most one
// metadata round trip is made.
func (ins *Instance) GetGroupInfo(ctx context.Context, gid string, raiseErr bool) (*GroupMetadata, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	gid = CreateID(gid)
	if !ins.knownGroup(gid) {
		if raiseErr {
			return nil, ErrGroupNotFound
		}
		return nil, nil
	}

	client, err := ins.readyClient()
	if err != nil {
		return nil, err
	}

	meta, err := client.GroupMetadata(ctx, gid)
	if err != nil {
		if raiseErr {
			return nil, ErrGroupNotFound
		}
		return nil, nil
	}
	return &meta, nil
}

// GetAdminGroups returns metadata for every cached group where the paired
// account holds admin rights.
func (ins *Instance) GetAdminGroups(ctx context.Context) ([]GroupMetadata, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return nil, err
	}

	user := client.User()
	if user == nil {
		return nil, ErrClientNotValid
	}
	ownJID := bareUserJID(user.ID)

	var admin []GroupMetadata
	for _, chat := range ins.GetAllGroups() {
		meta, err := client.GroupMetadata(ctx, chat.ID)
		if err != nil {
			continue
		}
		for _, participant := range meta.Participants {
			if participant.JID == ownJID && (participant.IsAdmin || participant.IsSuperAdmin) {
				admin = append(admin, meta)
				break
			}
		}
	}
	return admin, nil
}

func (ins *Instance) CreateGroup(ctx context.Context, subject string, participants []string) (GroupMetadata, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return GroupMetadata{}, err
	}

	jids := make([]string, 0, len(participants))
	for _, participant := range participants {
		jids = append(jids, CreateID(participant))
	}

	meta, err := client.CreateGroup(ctx, subject, jids)
	if err != nil {
		return GroupMetadata{}, err
	}

	ins.upsertChats([]Chat{{ID: meta.JID, Name: meta.Subject}})
	return meta, nil
}

func (ins *Instance) UpdateGroupParticipants(ctx context.Context, gid string, participants []string, action string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch action {
	case GroupActionAdd, GroupActionRemove, GroupActionPromote, GroupActionDemote:
	default:
		return fmt.Errorf("unsupported participant action %q", action)
	}

	gid = CreateID(gid)
	if !ins.knownGroup(gid) {
		return ErrGroupNotFound
	}

	client, err := ins.readyClient()
	if err != nil {
		return err
	}

	jids := make([]string, 0, len(participants))
	for _, participant := range participants {
		jids = append(jids, CreateID(participant))
	}
	return client.UpdateGroupParticipants(ctx, gid, jids, action)
}

func (ins *Instance) ChangeGroupSettings(ctx context.Context, gid string, setting string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	switch setting {
	case GroupSettingAnnouncement, GroupSettingNotAnnouncement, GroupSettingLocked, GroupSettingUnlocked:
	default:
		return fmt.Errorf("unsupported group setting %q", setting)
	}

	gid = CreateID(gid)
	if !ins.knownGroup(gid) {
		return ErrGroupNotFound
	}

	client, err := ins.readyClient()
	if err != nil {
		return err
	}
	return client.UpdateGroupSetting(ctx, gid, setting)
}

func (ins *Instance) GetGroupInviteCode(ctx context.Context, gid string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	gid = CreateID(gid)
	if !ins.knownGroup(gid) {
		return "", ErrGroupNotFound
	}

	client, err := ins.readyClient()
	if err != nil {
		return "", err
	}
	return client.GroupInviteCode(ctx, gid)
}

func (ins *Instance) LeaveGroup(ctx context.Context, gid string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	gid = CreateID(gid)
	if !ins.knownGroup(gid) {
		return ErrGroupNotFound
	}

	client, err := ins.readyClient()
	if err != nil {
		return err
	}

	if err := client.LeaveGroup(ctx, gid); err != nil {
		return err
	}
	ins.deleteChats([]string{gid})
	return nil
}

// bareUserJID drops the device part of a JID, "123:4@s.whatsapp.net"
// becomes "123@s.whatsapp.net".
func bareUserJID(jid string) string {
	user := jid
	if at := strings.IndexByte(jid, '@'); at >= 0 {
		user = jid[:at]
	}
	if colon := strings.IndexByte(user, ':'); colon >= 0 {
		user = user[:colon]
	}
	return user + UserSuffix
}
