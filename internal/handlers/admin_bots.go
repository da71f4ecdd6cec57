package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/murshop24/admin/internal/models"
	"github.com/murshop24/admin/internal/services"
)

const botsURL = "/admin/bots"

// GET /admin/bots
func (a *Admin) Bots(w http.ResponseWriter, r *http.Request) {
	var bots []models.TgBot
	if err := a.db.WithContext(r.Context()).
		Preload("TgOperator").Preload("TgReviewsChannel").
		Order("id").Find(&bots).Error; err != nil {
		a.dbError(w, err)
		return
	}

	vm := listVM{
		Heading: "Bots",
		NewURL:  botsURL + "/new",
		Columns: []string{"Username", "Running", "Operator", "Reviews channel"},
	}
	for _, b := range bots {
		op, ch := "", ""
		if b.TgOperator != nil {
			op = b.TgOperator.TgUsername
		}
		if b.TgReviewsChannel != nil {
			ch = b.TgReviewsChannel.InviteLink
		}
		vm.Rows = append(vm.Rows, listRow{
			Cells:     []string{b.TgUsername, yesNo(b.IsRunning), op, ch},
			EditURL:   actionURL(botsURL, b.ID),
			DeleteURL: actionURL(botsURL, b.ID) + "/delete",
		})
	}
	a.views.Render(w, http.StatusOK, "admin/list.tmpl", pageData(r, "Bots", vm))
}

// GET /admin/bots/new, GET /admin/bots/{id}
func (a *Admin) BotForm(w http.ResponseWriter, r *http.Request) {
	var bot models.TgBot
	if !a.loadByID(w, r, &bot) {
		return
	}
	sub := services.BotSubmission{
		Token:              bot.Token,
		TgOperatorID:       bot.TgOperatorID,
		TgReviewsChannelID: bot.TgReviewsChannelID,
	}
	a.renderBotForm(w, r, http.StatusOK, bot, sub, "")
}

// POST /admin/bots, POST /admin/bots/{id}
//
// Every save reruns the Telegram registration. A refused transition keeps
// the stored row as it was and shows the reason on the form.
func (a *Admin) BotSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sub := services.BotSubmission{
		Token:              r.PostForm.Get("token"),
		TgOperatorID:       optionalUint(r.PostForm.Get("tg_operator_id")),
		TgReviewsChannelID: optionalUint(r.PostForm.Get("tg_reviews_channel_id")),
	}

	var (
		bot models.TgBot
		err error
	)
	id, editing := idParam(r)
	if editing {
		bot, err = a.bots.Update(r.Context(), id, sub)
	} else {
		bot, err = a.bots.Create(r.Context(), sub)
	}

	var le *services.LifecycleError
	switch {
	case err == nil:
		http.Redirect(w, r, actionURL(botsURL, bot.ID)+"?ok=saved", http.StatusSeeOther)
	case errors.Is(err, services.ErrBotNotFound):
		http.NotFound(w, r)
	case errors.As(err, &le):
		prev := models.TgBot{ID: id}
		if editing {
			_ = a.db.WithContext(r.Context()).First(&prev, id).Error
		}
		a.renderBotForm(w, r, http.StatusUnprocessableEntity, prev, sub, le.Message)
	default:
		a.dbError(w, err)
	}
}

// POST /admin/bots/{id}/delete
func (a *Admin) BotDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	err := a.bots.Delete(r.Context(), id)
	switch {
	case err == nil:
		http.Redirect(w, r, botsURL+"?ok=deleted", http.StatusSeeOther)
	case errors.Is(err, services.ErrBotNotFound):
		http.NotFound(w, r)
	default:
		a.dbError(w, err)
	}
}

func (a *Admin) renderBotForm(w http.ResponseWriter, r *http.Request, status int, bot models.TgBot, sub services.BotSubmission, errMsg string) {
	operators, err := a.operatorOptions(r.Context())
	if err != nil {
		a.dbError(w, err)
		return
	}
	channels, err := a.channelOptions(r.Context())
	if err != nil {
		a.dbError(w, err)
		return
	}

	vm := formVM{
		Heading: "New bot",
		Action:  actionURL(botsURL, bot.ID),
		BackURL: botsURL,
		Error:   errMsg,
	}
	if bot.ID != 0 {
		vm.Heading = "Bot @" + bot.TgUsername
		vm.DeleteURL = actionURL(botsURL, bot.ID) + "/delete"
		vm.Fields = append(vm.Fields,
			field{Label: "Telegram ID", Type: "readonly", Value: strconv.FormatInt(bot.TgID, 10)},
			field{Label: "Username", Type: "readonly", Value: bot.TgUsername},
			field{Label: "Running", Type: "readonly", Value: yesNo(bot.IsRunning)},
		)
		if bot.TgUsername != "" {
			vm.Fields = append(vm.Fields, field{Label: "Link", Type: "readonly", Value: botLink(bot)})
			vm.ImageURL = fmt.Sprintf("%s/%d/qr.png", botsURL, bot.ID)
		}
	}
	vm.Fields = append(vm.Fields,
		field{Name: "token", Label: "Token", Type: "text", Value: sub.Token, Required: true},
		field{Name: "tg_operator_id", Label: "Operator", Type: "select",
			Options: selectOptions(operators, uintString(sub.TgOperatorID))},
		field{Name: "tg_reviews_channel_id", Label: "Reviews channel", Type: "select",
			Options: selectOptions(channels, uintString(sub.TgReviewsChannelID))},
	)
	a.views.Render(w, status, "admin/form.tmpl", pageData(r, "Bot", vm))
}

func (a *Admin) operatorOptions(ctx context.Context) ([]option, error) {
	var ops []models.TgOperator
	if err := a.db.WithContext(ctx).Order("tg_username").Find(&ops).Error; err != nil {
		return nil, err
	}
	out := make([]option, 0, len(ops))
	for _, o := range ops {
		out = append(out, option{Value: idString(o.ID), Label: o.TgUsername})
	}
	return out, nil
}

func (a *Admin) channelOptions(ctx context.Context) ([]option, error) {
	var chs []models.TgReviewsChannel
	if err := a.db.WithContext(ctx).Order("id").Find(&chs).Error; err != nil {
		return nil, err
	}
	out := make([]option, 0, len(chs))
	for _, c := range chs {
		out = append(out, option{Value: idString(c.ID), Label: c.InviteLink})
	}
	return out, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
