package whatsapp

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

const (
	UserSuffix         = "@s.whatsapp.net"
	GroupSuffix        = "@g.us"
	StatusBroadcastJID = "status@broadcast"
)

// brPhonePattern matches Brazilian numbers in the shape country code,
// area code, mobile prefix digit, 8-digit subscriber number.
var brPhonePattern = regexp.MustCompile(`^(\d{2})(\d{2})\d(\d{8})$`)

// normalizeBrazilianNumber drops the extra mobile prefix digit for numbers
// in area codes below 31, which were registered before the nationwide ninth
// digit rollout. Everything else passes through untouched.
func normalizeBrazilianNumber(number string) string {
	match := brPhonePattern.FindStringSubmatch(number)
	if match == nil || match[1] != "55" {
		return number
	}

	areaCode, err := strconv.Atoi(match[2])
	if err != nil {
		return number
	}

	if areaCode < 31 {
		return match[1] + match[2] + match[3]
	}
	return number
}

// CreateID turns a raw identifier into a full JID. Identifiers that already
// carry a server suffix pass through, a bare ID containing a dash is treated
// as a group ID, anything else as a phone number.
func CreateID(id string) string {
	if strings.HasSuffix(id, GroupSuffix) || strings.HasSuffix(id, UserSuffix) {
		return id
	}
	if strings.Contains(id, "-") || strings.Contains(id, "@") {
		return strings.SplitN(id, "@", 2)[0] + GroupSuffix
	}
	return normalizeBrazilianNumber(id) + UserSuffix
}

// IsRegistered resolves whether the given identifier maps to an active
// account. Group IDs are assumed to exist without a network round trip.
func IsRegistered(ctx context.Context, client ProtocolClient, id string) (Registration, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.HasSuffix(id, GroupSuffix) || strings.Contains(id, "-") {
		return Registration{Exists: true, JID: CreateID(id)}, nil
	}

	number := strings.TrimSuffix(id, UserSuffix)
	return client.IsOnWhatsApp(ctx, normalizeBrazilianNumber(number))
}

// IsRegistered resolves registration through this instance's client.
func (ins *Instance) IsRegistered(ctx context.Context, id string) (Registration, error) {
	client, err := ins.readyClient()
	if err != nil {
		return Registration{}, err
	}
	return IsRegistered(ctx, client, id)
}
