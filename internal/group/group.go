package group

import (
	"context"

	"github.com/gofiber/fiber/v2"

	typWhatsApp "github.com/wazend/go-whatsapp-instance-api/internal/types"
	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
	"github.com/wazend/go-whatsapp-instance-api/pkg/router"
	"github.com/wazend/go-whatsapp-instance-api/pkg/validation"
	pkgWhatsApp "github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func currentInstance(c *fiber.Ctx) (*pkgWhatsApp.Instance, error) {
	return pkgWhatsApp.Default().Get(c.Params("key"))
}

func List(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success get groups", fiber.Map{
		"groups": ins.GetAllGroups(),
	})
}

// ListAdmin returns the groups where the paired account holds admin rights.
func ListAdmin(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	groups, err := ins.GetAdminGroups(requestContext(c))
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success get admin groups", fiber.Map{
		"groups": groups,
	})
}

func Info(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	gid := c.Params("gid")
	if err := validation.ValidateGroupID(gid); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	meta, err := ins.GetGroupInfo(requestContext(c), gid, c.QueryBool("raise", true))
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success get group info", meta)
}

func Create(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestCreateGroup
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if req.Subject == "" {
		return router.ResponseBadRequest(c, "subject is required")
	}

	meta, err := ins.CreateGroup(requestContext(c), req.Subject, req.Participants)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	log.InstanceOp(c, ins.Key, "CreateGroup").Info("Group created")
	return router.ResponseCreatedWithData(c, "Success create group", meta)
}

func UpdateParticipants(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	gid := c.Params("gid")
	if err := validation.ValidateGroupID(gid); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	var req typWhatsApp.RequestGroupParticipants
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if len(req.Participants) == 0 {
		return router.ResponseBadRequest(c, "participants are required")
	}

	if err := ins.UpdateGroupParticipants(requestContext(c), gid, req.Participants, req.Action); err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccess(c, "Success update group participants")
}

func UpdateSettings(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	gid := c.Params("gid")
	if err := validation.ValidateGroupID(gid); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	var req typWhatsApp.RequestGroupSettings
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}

	if err := ins.ChangeGroupSettings(requestContext(c), gid, req.Setting); err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccess(c, "Success update group settings")
}

func InviteCode(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	gid := c.Params("gid")
	if err := validation.ValidateGroupID(gid); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	code, err := ins.GetGroupInviteCode(requestContext(c), gid)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success get group invite code", fiber.Map{
		"invite_code": code,
	})
}

func Leave(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	gid := c.Params("gid")
	if err := validation.ValidateGroupID(gid); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	if err := ins.LeaveGroup(requestContext(c), gid); err != nil {
		return router.HttpErrorHandler(c, err)
	}

	log.InstanceOp(c, ins.Key, "LeaveGroup").Info("Left group")
	return router.ResponseSuccess(c, "Success leave group")
}
