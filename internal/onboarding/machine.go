package onboarding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/traveler/internal/i18n"
	"github.com/zulandar/traveler/internal/nlu"
	"github.com/zulandar/traveler/internal/store"
	"github.com/zulandar/traveler/internal/telegraph"
	"go.uber.org/zap"
)

// DefaultSearchPause is the delay between the "searching" and "found"
// messages at the end of registration.
const DefaultSearchPause = 3 * time.Second

// Machine drives the registration dialog for every chat. Each chat's
// session is handled by at most one goroutine at a time; different chats
// proceed independently.
type Machine struct {
	profiles store.ProfileStore
	nlu      nlu.Client
	sessions SessionStore
	sender   telegraph.Sender
	pause    time.Duration
	logger   *zap.Logger
	locks    *chatLocks
}

// MachineOpts holds parameters for creating a Machine.
type MachineOpts struct {
	Profiles    store.ProfileStore
	NLU         nlu.Client   // defaults to nlu.Nop
	Sessions    SessionStore // defaults to a MemorySessionStore
	Sender      telegraph.Sender
	SearchPause time.Duration // defaults to DefaultSearchPause; negative disables
	Logger      *zap.Logger   // defaults to zap.NewNop()
}

// NewMachine creates a Machine.
func NewMachine(opts MachineOpts) (*Machine, error) {
	if opts.Profiles == nil {
		return nil, fmt.Errorf("onboarding: profile store is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("onboarding: sender is required")
	}
	m := &Machine{
		profiles: opts.Profiles,
		nlu:      opts.NLU,
		sessions: opts.Sessions,
		sender:   opts.Sender,
		pause:    opts.SearchPause,
		logger:   opts.Logger,
		locks:    newChatLocks(),
	}
	if m.nlu == nil {
		m.nlu = nlu.Nop{}
	}
	if m.sessions == nil {
		m.sessions = NewMemorySessionStore()
	}
	if m.pause == 0 {
		m.pause = DefaultSearchPause
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	return m, nil
}

// Start begins (or restarts) the dialog for a chat, as on "/start".
// locale is the language the platform reports for the user.
func (m *Machine) Start(ctx context.Context, chatID, locale string) error {
	unlock := m.locks.lock(chatID)
	defer unlock()

	sess := &Session{ChatID: chatID, State: StateIdle}
	return m.onEntry(ctx, sess, locale)
}

// Handle processes a text message according to the chat's current state.
// A chat with no session is treated as if it had sent "/start".
func (m *Machine) Handle(ctx context.Context, chatID, locale, text string) error {
	unlock := m.locks.lock(chatID)
	defer unlock()

	sess, err := m.sessions.Load(ctx, chatID)
	if err != nil {
		m.say(ctx, chatID, i18n.Text(fallbackLang(locale), i18n.OutOfService))
		return fmt.Errorf("onboarding: load session %s: %w", chatID, err)
	}

	switch sess.State {
	case StateAwaitingLanguage:
		return m.onLanguageChoice(ctx, sess, text)
	case StateAwaitingDisplayName:
		return m.onDisplayName(ctx, sess, text)
	case StateAwaitingCompanionName:
		return m.onCompanionName(ctx, sess, text)
	case StateActive:
		return m.onFreeText(ctx, sess, locale, text)
	default:
		return m.onEntry(ctx, sess, locale)
	}
}

// State returns the chat's current dialog state.
func (m *Machine) State(ctx context.Context, chatID string) (State, error) {
	sess, err := m.sessions.Load(ctx, chatID)
	if err != nil {
		return "", err
	}
	return sess.State, nil
}

// onEntry checks registration and opens the first step.
func (m *Machine) onEntry(ctx context.Context, sess *Session, locale string) error {
	profile, err := m.profiles.GetProfile(ctx, sess.ChatID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		*sess = Session{ChatID: sess.ChatID}
		if lang, ok := i18n.FromLocale(locale); ok {
			sess.LanguageCode = lang
			sess.State = StateAwaitingDisplayName
			m.say(ctx, sess.ChatID, i18n.Text(lang, i18n.Start))
		} else {
			sess.State = StateAwaitingLanguage
			m.say(ctx, sess.ChatID, i18n.Text(i18n.EN, i18n.Intro))
			m.ask(ctx, sess.ChatID, i18n.Text(i18n.EN, i18n.AskLang), i18n.Labels())
		}
		return m.save(ctx, sess)

	case err != nil:
		m.logger.Warn("profile lookup failed",
			zap.String("chat", sess.ChatID), zap.Error(err))
		m.say(ctx, sess.ChatID, i18n.Text(fallbackLang(locale), i18n.OutOfService))
		return m.sessions.Delete(ctx, sess.ChatID)

	default:
		*sess = Session{
			ChatID:       sess.ChatID,
			State:        StateActive,
			LanguageCode: profile.LanguageCode,
		}
		m.say(ctx, sess.ChatID, i18n.Text(profile.LanguageCode, i18n.Busy))
		return m.save(ctx, sess)
	}
}

func (m *Machine) onLanguageChoice(ctx context.Context, sess *Session, text string) error {
	lang, ok := i18n.MatchLabel(text)
	if !ok {
		m.ask(ctx, sess.ChatID, i18n.Text(i18n.EN, i18n.ChooseLang), i18n.Labels())
		return nil
	}
	sess.LanguageCode = lang
	sess.State = StateAwaitingDisplayName
	m.say(ctx, sess.ChatID, i18n.Text(lang, i18n.AskName))
	return m.save(ctx, sess)
}

func (m *Machine) onDisplayName(ctx context.Context, sess *Session, text string) error {
	if !validName(text) {
		m.say(ctx, sess.ChatID, i18n.Text(sess.LanguageCode, i18n.WrongName))
		return nil
	}
	sess.DisplayName = normalizeName(text)
	sess.State = StateAwaitingCompanionName
	m.say(ctx, sess.ChatID, sess.DisplayName+i18n.Text(sess.LanguageCode, i18n.AskPetName))
	return m.save(ctx, sess)
}

func (m *Machine) onCompanionName(ctx context.Context, sess *Session, text string) error {
	lang := sess.LanguageCode
	if !validName(text) {
		m.say(ctx, sess.ChatID, i18n.Text(lang, i18n.WrongName))
		return nil
	}
	companion := normalizeName(text)

	err := m.profiles.CreateProfile(ctx, store.Profile{
		ChatID:        sess.ChatID,
		DisplayName:   sess.DisplayName,
		CompanionName: companion,
		LanguageCode:  lang,
	})
	if err != nil {
		// Stay on this step so the user can resend the name.
		m.logger.Warn("create profile failed",
			zap.String("chat", sess.ChatID), zap.Error(err))
		m.say(ctx, sess.ChatID, i18n.Text(lang, i18n.OutOfService))
		return fmt.Errorf("onboarding: create profile %s: %w", sess.ChatID, err)
	}

	sess.CompanionName = companion
	sess.State = StateActive
	if err := m.save(ctx, sess); err != nil {
		return err
	}
	m.logger.Info("user registered",
		zap.String("chat", sess.ChatID), zap.String("lang", lang))

	m.say(ctx, sess.ChatID, i18n.Text(lang, i18n.Search))
	if err := sleep(ctx, m.pause); err != nil {
		return err
	}
	m.say(ctx, sess.ChatID, sess.DisplayName+i18n.Text(lang, i18n.Found))
	m.say(ctx, sess.ChatID, i18n.Text(lang, i18n.Personal))
	return nil
}

func (m *Machine) onFreeText(ctx context.Context, sess *Session, locale, text string) error {
	profile, err := m.profiles.GetProfile(ctx, sess.ChatID)
	if errors.Is(err, store.ErrNotFound) {
		// Profile removed upstream; register again.
		return m.onEntry(ctx, sess, locale)
	}
	if err != nil {
		m.logger.Warn("profile lookup failed",
			zap.String("chat", sess.ChatID), zap.Error(err))
		m.say(ctx, sess.ChatID, i18n.Text(sess.LanguageCode, i18n.OutOfService))
		return nil
	}
	lang := profile.LanguageCode

	reply, err := m.nlu.DetectIntent(ctx, sess.ChatID, text, lang)
	if err != nil {
		m.logger.Warn("nlu detect intent failed",
			zap.String("chat", sess.ChatID), zap.Error(err))
	}
	if strings.TrimSpace(reply) == "" {
		reply = i18n.Text(lang, i18n.UnknownCommand)
	}
	m.say(ctx, sess.ChatID, reply)
	return nil
}

func (m *Machine) save(ctx context.Context, sess *Session) error {
	if err := m.sessions.Save(ctx, sess); err != nil {
		return fmt.Errorf("onboarding: save session %s: %w", sess.ChatID, err)
	}
	return nil
}

// say sends text to the chat. Send failures are logged, not returned: the
// dialog state is already decided by the time a reply goes out.
func (m *Machine) say(ctx context.Context, chatID, text string) {
	m.ask(ctx, chatID, text, nil)
}

// ask sends text with selectable reply options.
func (m *Machine) ask(ctx context.Context, chatID, text string, options []string) {
	err := m.sender.Send(ctx, telegraph.OutboundMessage{
		ChatID:  chatID,
		Text:    text,
		Options: options,
	})
	if err != nil {
		m.logger.Warn("send reply failed", zap.String("chat", chatID), zap.Error(err))
	}
}

// fallbackLang picks the language for replies sent before a session has one.
func fallbackLang(locale string) string {
	if lang, ok := i18n.FromLocale(locale); ok {
		return lang
	}
	return i18n.DefaultLang
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
