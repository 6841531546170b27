package wameow

import (
	"context"
	"fmt"
	"strings"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/types"

	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

func (c *Client) GroupMetadata(ctx context.Context, jid string) (whatsapp.GroupMetadata, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	groupJID, err := parseJID(jid)
	if err != nil {
		return whatsapp.GroupMetadata{}, err
	}

	info, err := c.wm.GetGroupInfo(ctx, groupJID)
	if err != nil {
		return whatsapp.GroupMetadata{}, err
	}
	return convertGroupInfo(info), nil
}

func (c *Client) CreateGroup(ctx context.Context, subject string, participants []string) (whatsapp.GroupMetadata, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req := whatsmeow.ReqCreateGroup{Name: subject}
	for _, participant := range participants {
		parsed, err := parseJID(participant)
		if err != nil {
			return whatsapp.GroupMetadata{}, err
		}
		req.Participants = append(req.Participants, parsed)
	}

	info, err := c.wm.CreateGroup(ctx, req)
	if err != nil {
		return whatsapp.GroupMetadata{}, err
	}
	return convertGroupInfo(info), nil
}

func (c *Client) UpdateGroupParticipants(ctx context.Context, jid string, participants []string, action string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	groupJID, err := parseJID(jid)
	if err != nil {
		return err
	}

	jids := make([]types.JID, 0, len(participants))
	for _, participant := range participants {
		parsed, err := parseJID(participant)
		if err != nil {
			return err
		}
		jids = append(jids, parsed)
	}

	_, err = c.wm.UpdateGroupParticipants(ctx, groupJID, jids, whatsmeow.ParticipantChange(action))
	return err
}

func (c *Client) UpdateGroupSetting(ctx context.Context, jid string, setting string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	groupJID, err := parseJID(jid)
	if err != nil {
		return err
	}

	switch setting {
	case whatsapp.GroupSettingAnnouncement:
		return c.wm.SetGroupAnnounce(ctx, groupJID, true)
	case whatsapp.GroupSettingNotAnnouncement:
		return c.wm.SetGroupAnnounce(ctx, groupJID, false)
	case whatsapp.GroupSettingLocked:
		return c.wm.SetGroupLocked(ctx, groupJID, true)
	case whatsapp.GroupSettingUnlocked:
		return c.wm.SetGroupLocked(ctx, groupJID, false)
	default:
		return fmt.Errorf("unsupported group setting %q", setting)
	}
}

// GroupInviteCode returns the bare invite code, without the share-link
// prefix the wire layer wraps it in.
func (c *Client) GroupInviteCode(ctx context.Context, jid string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	groupJID, err := parseJID(jid)
	if err != nil {
		return "", err
	}

	link, err := c.wm.GetGroupInviteLink(ctx, groupJID, false)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(link, whatsmeow.InviteLinkPrefix), nil
}

func (c *Client) LeaveGroup(ctx context.Context, jid string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	groupJID, err := parseJID(jid)
	if err != nil {
		return err
	}
	return c.wm.LeaveGroup(ctx, groupJID)
}

func convertGroupInfo(info *types.GroupInfo) whatsapp.GroupMetadata {
	meta := whatsapp.GroupMetadata{
		JID:       info.JID.String(),
		Subject:   info.Name,
		Topic:     info.Topic,
		Announce:  info.IsAnnounce,
		Locked:    info.IsLocked,
		CreatedAt: info.GroupCreated,
	}
	if !info.OwnerJID.IsEmpty() {
		meta.OwnerJID = info.OwnerJID.String()
	}
	for _, participant := range info.Participants {
		meta.Participants = append(meta.Participants, whatsapp.GroupParticipant{
			JID:          participant.JID.String(),
			IsAdmin:      participant.IsAdmin,
			IsSuperAdmin: participant.IsSuperAdmin,
		})
	}
	return meta
}
