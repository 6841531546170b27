package whatsapp

import (
	"context"
	"encoding/base64"

	"github.com/forPelevin/gomoji"
	"github.com/rivo/uniseg"

	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
)

// readyClient returns the protocol client for send operations, failing when
// the instance was never connected or already torn down.
func (ins *Instance) readyClient() (ProtocolClient, error) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	if ins.client == nil || ins.terminated {
		return nil, ErrClientNotValid
	}
	return ins.client, nil
}

// resolveTarget turns a raw recipient into a JID, verifying registration for
// personal targets.
func (ins *Instance) resolveTarget(ctx context.Context, client ProtocolClient, to string) (string, error) {
	reg, err := IsRegistered(ctx, client, to)
	if err != nil {
		return "", err
	}
	if !reg.Exists {
		return "", ErrNotRegistered
	}
	if reg.JID != "" {
		return reg.JID, nil
	}
	return CreateID(to), nil
}

func (ins *Instance) SendText(ctx context.Context, to string, text string) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.SendText(ctx, jid, text)
}

// SendTextToMany fans a text out to multiple recipients. Per-recipient
// failures are collected, not fatal.
func (ins *Instance) SendTextToMany(ctx context.Context, to []string, text string) (BulkSendResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return BulkSendResult{}, err
	}

	result := BulkSendResult{Sent: []string{}, Failed: []string{}, Data: []SendResponse{}}
	for _, recipient := range to {
		jid, err := ins.resolveTarget(ctx, client, recipient)
		if err != nil {
			log.Instance(ins.Key).Warnln("Skipping Recipient", maskJID(recipient), "Reason:", err.Error())
			result.Failed = append(result.Failed, recipient)
			continue
		}
		res, err := client.SendText(ctx, jid, text)
		if err != nil {
			log.Instance(ins.Key).Warnln("Error Sending to", maskJID(jid), "Reason:", err.Error())
			result.Failed = append(result.Failed, recipient)
			continue
		}
		result.Sent = append(result.Sent, recipient)
		result.Data = append(result.Data, res)
	}
	return result, nil
}

func (ins *Instance) SendMedia(ctx context.Context, to string, media Media) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.SendMedia(ctx, jid, media)
}

func (ins *Instance) SendMediaURL(ctx context.Context, to string, media MediaURL) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.SendMediaURL(ctx, jid, media)
}

func (ins *Instance) SendButtons(ctx context.Context, to string, msg ButtonMessage) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.SendButtons(ctx, jid, msg)
}

func (ins *Instance) SendButtonsImage(ctx context.Context, to string, msg ButtonImageMessage) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.SendButtonsImage(ctx, jid, msg)
}

func (ins *Instance) SendLocation(ctx context.Context, to string, loc Location) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.SendLocation(ctx, jid, loc)
}

func (ins *Instance) SendContact(ctx context.Context, to string, card VCard) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.SendContact(ctx, jid, card)
}

func (ins *Instance) SendList(ctx context.Context, to string, msg ListMessage) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.SendList(ctx, jid, msg)
}

// SendReaction reacts to a message. The emoji must be a single grapheme
// recognized as an emoji; an empty string removes a previous reaction.
func (ins *Instance) SendReaction(ctx context.Context, to string, messageID string, fromMe bool, emoji string) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if emoji != "" {
		if !gomoji.ContainsEmoji(emoji) || uniseg.GraphemeClusterCount(emoji) != 1 {
			return SendResponse{}, ErrReactionInvalid
		}
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.SendReaction(ctx, jid, messageID, fromMe, emoji)
}

// RevokeMessage deletes a previously sent message for everyone.
func (ins *Instance) RevokeMessage(ctx context.Context, to string, messageID string) (SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return SendResponse{}, err
	}
	jid, err := ins.resolveTarget(ctx, client, to)
	if err != nil {
		return SendResponse{}, err
	}
	return client.RevokeMessage(ctx, jid, messageID)
}

// DownloadMessage fetches the media attachment of a cached or stored
// message and returns it base64-encoded with its media type.
func (ins *Instance) DownloadMessage(ctx context.Context, msg Message) (string, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := ins.readyClient()
	if err != nil {
		return "", "", err
	}

	data, mimeType, err := client.Download(ctx, msg)
	if err != nil {
		log.Instance(ins.Key).Warnln("Error Downloading Media:", err.Error())
		return "", "", ErrDownloadFailed
	}
	return base64.StdEncoding.EncodeToString(data), mimeType, nil
}
