package sitecms

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/sitecms/blob"
)

// storageCommand is the body of POST /api/storage-management.
type storageCommand struct {
	Action       string `json:"action" validate:"required,oneof=cleanup move copy delete"`
	Folder       string `json:"folder"`
	DaysOld      *int   `json:"daysOld" validate:"omitempty,min=0"`
	URL          string `json:"url"`
	TargetFolder string `json:"targetFolder"`
}

// storageStatus maps a failed shim result onto an HTTP status.
func storageStatus(code blob.ErrorCode) int {
	switch code {
	case blob.CodeNotFound:
		return http.StatusNotFound
	case blob.CodeInvalidFolder, blob.CodeInvalidURL, blob.CodeInvalidFormat, blob.CodeFileTooLarge:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (a *App) handleStorageQuery(c echo.Context) error {
	switch action := c.QueryParam("action"); action {
	case "stats":
		return c.JSON(http.StatusOK, a.Storage.Stats())
	case "validate":
		return c.JSON(http.StatusOK, a.Storage.Validate())
	case "info":
		u := strings.TrimSpace(c.QueryParam("url"))
		if u == "" {
			return badRequest("url is required")
		}
		return c.JSON(http.StatusOK, a.Storage.Info(u))
	case "":
		return badRequest("action is required")
	default:
		return badRequest("unknown action " + action)
	}
}

func (a *App) handleStorageCommand(c echo.Context) error {
	var cmd storageCommand
	if err := bind(c, &cmd); err != nil {
		return err
	}

	switch cmd.Action {
	case "cleanup":
		folder := blob.FolderTemp
		if cmd.Folder != "" {
			folder = blob.Folder(cmd.Folder)
		}
		days := a.Config.TempRetentionDays
		if cmd.DaysOld != nil {
			days = *cmd.DaysOld
		}
		res := a.Storage.Cleanup(folder, days)
		if !res.Success {
			return c.JSON(storageStatus(res.Code), res)
		}
		a.Log.Info("storage cleanup", zap.String("folder", string(folder)), zap.Int("deleted", res.Deleted))
		return c.JSON(http.StatusOK, res)

	case "move", "copy":
		if cmd.URL == "" || cmd.TargetFolder == "" {
			return badRequest("url and targetFolder are required")
		}
		var res blob.TransferResult
		if cmd.Action == "move" {
			res = a.Storage.Move(cmd.URL, blob.Folder(cmd.TargetFolder))
		} else {
			res = a.Storage.Copy(cmd.URL, blob.Folder(cmd.TargetFolder))
		}
		if !res.Success {
			return c.JSON(storageStatus(res.Code), res)
		}
		return c.JSON(http.StatusOK, res)

	default: // delete
		if cmd.URL == "" {
			return badRequest("url is required")
		}
		res := a.Storage.Delete(cmd.URL)
		if !res.Success {
			return c.JSON(storageStatus(res.Code), res)
		}
		return c.JSON(http.StatusOK, res)
	}
}
