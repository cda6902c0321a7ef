package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domainBot "github.com/AzielCF/az-juris/domains/bot"
	domainChat "github.com/AzielCF/az-juris/domains/chat"
	domainGateway "github.com/AzielCF/az-juris/domains/gateway"
	domainLegalCase "github.com/AzielCF/az-juris/domains/legalcase"
	"github.com/AzielCF/az-juris/pkg/timeutils"
	"github.com/AzielCF/az-juris/pkg/utils"
	"github.com/sirupsen/logrus"
)

const defaultReplyTimeout = 10 * time.Second

const (
	defaultWelcome   = "Olá {nome}! Bem-vindo ao nosso escritório. Digite *menu* para ver as opções de atendimento."
	identifyYourself = "Não encontramos um processo vinculado a este número. Por favor, informe seu nome completo e CPF para que possamos identificá-lo."
	notInformed      = "não informado"
)

var (
	menuCommands = map[string]bool{"menu": true, "menu principal": true, "0": true}
	greetings    = map[string]bool{
		"oi": true, "ola": true, "bom dia": true, "boa tarde": true,
		"boa noite": true, "hello": true, "hi": true,
	}
)

type autoResponder struct {
	configs domainBot.IBotConfigRepository
	cases   domainLegalCase.ICaseRepository
	chats   domainChat.IChatUsecase
	gateway domainGateway.IGatewayClient
	timeout time.Duration
	now     func() time.Time
}

func NewAutoResponder(
	configs domainBot.IBotConfigRepository,
	cases domainLegalCase.ICaseRepository,
	chats domainChat.IChatUsecase,
	gateway domainGateway.IGatewayClient,
	timeout time.Duration,
) domainBot.IAutoResponder {
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	return &autoResponder{
		configs: configs,
		cases:   cases,
		chats:   chats,
		gateway: gateway,
		timeout: timeout,
		now:     time.Now,
	}
}

// Respond picks at most one reply for an inbound message and sends it.
// Rules are tried in order and the first match wins.
func (r *autoResponder) Respond(ctx context.Context, request domainBot.RespondRequest) (domainBot.Reply, error) {
	cfg, err := r.configs.GetByInstance(ctx, request.TenantID, request.Chat.InstanceID)
	if errors.Is(err, domainBot.ErrConfigNotFound) {
		return domainBot.Reply{Rule: domainBot.RuleNone}, nil
	}
	if err != nil {
		return domainBot.Reply{Rule: domainBot.RuleNone}, err
	}
	if !cfg.Active {
		return domainBot.Reply{Rule: domainBot.RuleNone}, nil
	}

	if hours := cfg.BusinessHours; hours != nil {
		open, err := timeutils.WithinBusinessHours(r.now(), hours.Start, hours.End, hours.Timezone)
		if err != nil {
			logrus.WithError(err).Warnf("[AUTORESPONDER] ignoring invalid business hours for instance %s", request.InstanceName)
		} else if !open {
			return r.send(ctx, request, domainBot.RuleOffline, hours.OfflineMessage)
		}
	}

	legalCase, found := r.resolveCase(ctx, request)
	rule, text := r.selectReply(cfg, request.Message, legalCase, found)
	if rule == domainBot.RuleNone {
		return domainBot.Reply{Rule: rule}, nil
	}
	return r.send(ctx, request, rule, text)
}

func (r *autoResponder) selectReply(cfg domainBot.Config, msg domainChat.Message, legalCase domainLegalCase.Case, found bool) (domainBot.Rule, string) {
	if msg.Content.Kind == domainChat.KindText {
		text := utils.NormalizeKeyword(msg.Content.Text)
		switch {
		case menuCommands[text]:
			return domainBot.RuleMenu, menuText(cfg.MenuOptions)
		case greetings[text]:
			return domainBot.RuleWelcome, welcomeText(cfg.WelcomeMessage, msg.PushName)
		}
		if reply, ok := builtinReply(text, legalCase, found); ok {
			return domainBot.RuleBuiltin, reply
		}
		if opt, ok := matchOption(cfg.MenuOptions, text); ok {
			return domainBot.RuleKeyword, optionText(opt)
		}
	}

	if msg.Content.Kind == domainChat.KindDocument {
		if found {
			name := msg.Content.FileName
			if name == "" {
				name = "enviado"
			}
			return domainBot.RuleDocument, fmt.Sprintf("Recebemos o documento %q. Ele será anexado ao seu processo e analisado pela nossa equipe.", name)
		}
		return domainBot.RuleDocument, "Recebemos seu documento. " + identifyYourself
	}

	if strings.TrimSpace(cfg.FallbackMessage) == "" {
		return domainBot.RuleNone, ""
	}
	return domainBot.RuleFallback, cfg.FallbackMessage
}

// resolveCase prefers the case already linked to the chat, then the phone
// lookup. No match is a valid outcome.
func (r *autoResponder) resolveCase(ctx context.Context, request domainBot.RespondRequest) (domainLegalCase.Case, bool) {
	if r.cases == nil {
		return domainLegalCase.Case{}, false
	}
	if caseID := request.Chat.CaseID; caseID != "" {
		found, ok, err := r.cases.GetByID(ctx, request.TenantID, caseID)
		if err != nil {
			logrus.WithError(err).Warnf("[AUTORESPONDER] case %s lookup failed", caseID)
		} else if ok {
			return found, true
		}
	}

	contact, ok := utils.ParseRemoteJID(request.Chat.RemoteJID)
	if !ok || contact.IsGroup {
		return domainLegalCase.Case{}, false
	}
	found, ok, err := r.cases.FindByPhone(ctx, request.TenantID, utils.PhoneCandidates(contact.User))
	if err != nil {
		logrus.WithError(err).Warnf("[AUTORESPONDER] phone lookup failed for %s", contact.User)
		return domainLegalCase.Case{}, false
	}
	return found, ok
}

func (r *autoResponder) send(ctx context.Context, request domainBot.RespondRequest, rule domainBot.Rule, text string) (domainBot.Reply, error) {
	reply := domainBot.Reply{Rule: rule, Text: text}
	if strings.TrimSpace(text) == "" {
		return domainBot.Reply{Rule: domainBot.RuleNone}, nil
	}

	contact, ok := utils.ParseRemoteJID(request.Chat.RemoteJID)
	if !ok {
		return reply, fmt.Errorf("invalid chat jid %q", request.Chat.RemoteJID)
	}
	number := contact.User
	if contact.IsGroup {
		number = contact.JID
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	res, err := r.gateway.SendText(sendCtx, request.TenantID, request.InstanceName, domainGateway.SendTextRequest{
		Number: number,
		Text:   text,
	})
	cancel()
	if err != nil {
		logrus.WithError(err).Warnf("[AUTORESPONDER] %s reply to %s via %s failed", rule, contact.User, request.InstanceName)
		return reply, err
	}
	reply.Sent = true
	logrus.Debugf("[AUTORESPONDER] %s reply sent to %s via %s", rule, contact.User, request.InstanceName)

	_, err = r.chats.RecordOutbound(ctx, domainChat.RecordOutboundRequest{
		TenantID:         request.TenantID,
		InstanceID:       request.Chat.InstanceID,
		RemoteJID:        request.Chat.RemoteJID,
		GatewayMessageID: res.MessageID,
		Text:             text,
		Status:           domainChat.MapGatewayStatus(res.Status),
		Timestamp:        res.Timestamp,
	})
	if err != nil {
		logrus.WithError(err).Warnf("[AUTORESPONDER] failed to record reply %s", res.MessageID)
	}
	return reply, nil
}

func welcomeText(template, pushName string) string {
	if strings.TrimSpace(template) == "" {
		template = defaultWelcome
	}
	name := strings.TrimSpace(pushName)
	text := strings.NewReplacer("{name}", name, "{nome}", name).Replace(template)
	// An empty name leaves "Olá !" behind.
	return strings.ReplaceAll(text, " !", "!")
}

func menuText(options []domainBot.MenuOption) string {
	var b strings.Builder
	b.WriteString("*Menu principal*\n")
	b.WriteString("1 - Status do processo\n")
	b.WriteString("2 - Informações do benefício\n")
	b.WriteString("3 - Número do processo e próximos passos\n")
	b.WriteString("4 - Falar com um advogado")
	if len(options) > 0 {
		b.WriteString("\n\nOu digite uma das opções:")
		for _, opt := range options {
			b.WriteString("\n• ")
			b.WriteString(opt.Keyword)
		}
	}
	b.WriteString("\n\nDigite 0 para voltar ao menu.")
	return b.String()
}

func builtinReply(text string, c domainLegalCase.Case, found bool) (string, bool) {
	switch text {
	case "1", "2", "3", "4":
	default:
		return "", false
	}
	if !found {
		return identifyYourself, true
	}

	switch text {
	case "1":
		return fmt.Sprintf("Olá %s! O status atual do seu processo é: *%s*.", c.ClientName, orNotInformed(c.Status)), true
	case "2":
		return fmt.Sprintf("Benefício: *%s*\nSituação do benefício: *%s*", orNotInformed(c.BenefitType), orNotInformed(c.BenefitStatus)), true
	case "3":
		if c.ProcessNumber == "" {
			return "Seu processo ainda não possui número de protocolo. Avisaremos assim que for distribuído.", true
		}
		return fmt.Sprintf("Número do processo: *%s*\nPróximos passos: nossa equipe acompanha os prazos e avisará você a cada movimentação.", c.ProcessNumber), true
	default:
		return "Certo! Um de nossos advogados dará continuidade ao seu atendimento em breve.", true
	}
}

func orNotInformed(value string) string {
	if strings.TrimSpace(value) == "" {
		return notInformed
	}
	return value
}

// matchOption searches depth first: an option, then its sub-options, then
// its next sibling.
func matchOption(options []domainBot.MenuOption, text string) (domainBot.MenuOption, bool) {
	for _, opt := range options {
		if utils.NormalizeKeyword(opt.Keyword) == text {
			return opt, true
		}
		if found, ok := matchOption(opt.Options, text); ok {
			return found, true
		}
	}
	return domainBot.MenuOption{}, false
}

func optionText(opt domainBot.MenuOption) string {
	if len(opt.Options) == 0 {
		return opt.Response
	}
	var b strings.Builder
	b.WriteString(opt.Response)
	for _, sub := range opt.Options {
		b.WriteString("\n• ")
		b.WriteString(sub.Keyword)
	}
	return b.String()
}
