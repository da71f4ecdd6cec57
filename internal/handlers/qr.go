package handlers

import (
	"net/http"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/murshop24/admin/internal/models"
)

// GET /admin/bots/{id}/qr.png
//
// Scanning the code opens the bot chat, for printing on flyers.
func (a *Admin) BotQR(w http.ResponseWriter, r *http.Request) {
	if _, ok := idParam(r); !ok {
		http.NotFound(w, r)
		return
	}
	var bot models.TgBot
	if !a.loadByID(w, r, &bot) {
		return
	}
	if bot.TgUsername == "" {
		http.NotFound(w, r)
		return
	}

	png, err := qrcode.Encode(botLink(bot), qrcode.Medium, 256)
	if err != nil {
		a.log.Error("qr encode", zap.Uint("bot_id", bot.ID), zap.Error(err))
		http.Error(w, "failed to generate qr", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func botLink(bot models.TgBot) string {
	return "https://t.me/" + bot.TgUsername
}
