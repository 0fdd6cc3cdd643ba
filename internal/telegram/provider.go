// Package telegram получает init data мини-приложения через пользовательский
// клиент Telegram (MTProto, gotd/td).
//
// На каждый вызов InitData клиент подключается с файлом сессии, находит бота
// по username, запрашивает app web view и отключается. Flood-wait выжидается
// внутри, ошибки отозванной или забаненной сессии превращаются в
// common.ErrInvalidSession.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/delay"
	"serotonyl.ru/goats-farm/internal/transport"
)

// Сколько раз подряд выжидаем flood-wait, прежде чем сдаться
const maxFloodWaits = 3

// Коды RPC-ошибок, после которых сессию уже не спасти
var fatalRPCErrors = []string{
	"AUTH_KEY_UNREGISTERED",
	"AUTH_KEY_INVALID",
	"AUTH_KEY_DUPLICATED",
	"SESSION_REVOKED",
	"SESSION_EXPIRED",
	"USER_DEACTIVATED",
	"USER_DEACTIVATED_BAN",
	"PHONE_NUMBER_BANNED",
}

// Options — параметры провайдера одной сессии.
type Options struct {
	APIID   int
	APIHash string
	// SessionPath — путь к файлу сессии gotd.
	SessionPath string
	// Proxy — socks5://... для MTProto. http-прокси для MTProto не поддерживаются.
	Proxy string

	BotUsername string
	ShortName   string
	StartParam  string
	Platform    string

	Device telegram.DeviceConfig
	Delay  delay.Provider
}

// Provider выдаёт init data для одной сессии.
type Provider struct {
	opts Options
	log  *log.Entry
}

// NewProvider проверяет параметры и создаёт провайдер.
func NewProvider(opts Options) (*Provider, error) {
	if opts.APIID == 0 || opts.APIHash == "" {
		return nil, fmt.Errorf("не заданы API_ID/API_HASH")
	}
	if opts.SessionPath == "" {
		return nil, fmt.Errorf("не задан путь к файлу сессии")
	}
	if opts.BotUsername == "" {
		opts.BotUsername = "realgoats_bot"
	}
	if opts.ShortName == "" {
		opts.ShortName = "run"
	}
	if opts.Platform == "" {
		opts.Platform = "android"
	}
	if opts.Delay == nil {
		opts.Delay = delay.New()
	}

	return &Provider{
		opts: opts,
		log:  log.WithFields(log.Fields{"component": "telegram", "session_file": opts.SessionPath}),
	}, nil
}

func (p *Provider) newClient() (*telegram.Client, error) {
	options := telegram.Options{
		SessionStorage: &session.FileStorage{Path: p.opts.SessionPath},
		Device:         p.opts.Device,
		NoUpdates:      true,
	}

	if p.opts.Proxy != "" {
		u, err := url.Parse(p.opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("ошибка разбора прокси: %w", err)
		}
		switch u.Scheme {
		case "socks5", "socks5h":
			d, err := transport.SOCKS5Dialer(u)
			if err != nil {
				return nil, err
			}
			options.Resolver = dcs.Plain(dcs.PlainOptions{Dial: d.DialContext})
		default:
			p.log.WithField("scheme", u.Scheme).Warn("MTProto через этот тип прокси не поддерживается, подключаемся напрямую")
		}
	}

	return telegram.NewClient(p.opts.APIID, p.opts.APIHash, options), nil
}

// InitData возвращает init data мини-приложения.
func (p *Provider) InitData(ctx context.Context) (string, error) {
	for attempt := 0; ; attempt++ {
		data, err := p.fetch(ctx)
		if err == nil {
			return data, nil
		}

		wait, ok := tgerr.AsFloodWait(err)
		if !ok || attempt >= maxFloodWaits {
			return "", classify(err)
		}

		wait += time.Second
		p.log.WithField("wait", wait.String()).Warn("FloodWait, ждём")
		if err := p.opts.Delay.Sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

func (p *Provider) fetch(ctx context.Context) (string, error) {
	client, err := p.newClient()
	if err != nil {
		return "", err
	}

	var data string
	err = client.Run(ctx, func(ctx context.Context) error {
		status, err := client.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("ошибка проверки авторизации: %w", err)
		}
		if !status.Authorized {
			return fmt.Errorf("%w: сессия не авторизована", common.ErrInvalidSession)
		}

		data, err = p.requestWebApp(ctx, client.API())
		return err
	})
	if err != nil {
		return "", err
	}
	return data, nil
}

func (p *Provider) requestWebApp(ctx context.Context, api *tg.Client) (string, error) {
	resolved, err := api.ContactsResolveUsername(ctx, p.opts.BotUsername)
	if err != nil {
		return "", fmt.Errorf("resolve @%s: %w", p.opts.BotUsername, err)
	}

	var bot *tg.User
	for _, u := range resolved.Users {
		if user, ok := u.(*tg.User); ok && user.Bot {
			bot = user
			break
		}
	}
	if bot == nil {
		return "", fmt.Errorf("%w: @%s", common.ErrBotNotFound, p.opts.BotUsername)
	}

	res, err := api.MessagesRequestAppWebView(ctx, &tg.MessagesRequestAppWebViewRequest{
		WriteAllowed: true,
		Peer:         &tg.InputPeerUser{UserID: bot.ID, AccessHash: bot.AccessHash},
		App: &tg.InputBotAppShortName{
			BotID:     &tg.InputUser{UserID: bot.ID, AccessHash: bot.AccessHash},
			ShortName: p.opts.ShortName,
		},
		StartParam: p.opts.StartParam,
		Platform:   p.opts.Platform,
	})
	if err != nil {
		return "", fmt.Errorf("request app web view: %w", err)
	}

	return ExtractInitData(res.URL)
}

// classify превращает RPC-ошибки мёртвой сессии в ErrInvalidSession.
func classify(err error) error {
	if err == nil || errors.Is(err, common.ErrInvalidSession) {
		return err
	}
	if tgerr.Is(err, fatalRPCErrors...) {
		return fmt.Errorf("%w: %w", common.ErrInvalidSession, err)
	}
	return err
}
