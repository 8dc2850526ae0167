package controllers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/asehgal-dev/wanderlust/auth"
	"github.com/asehgal-dev/wanderlust/httperr"
	"github.com/asehgal-dev/wanderlust/models"
	"github.com/asehgal-dev/wanderlust/render"
	"github.com/asehgal-dev/wanderlust/session"
	"github.com/asehgal-dev/wanderlust/storage"
)

type AuthController struct {
	users    storage.UserStore
	sessions *session.Store
	codec    *session.Codec
	renderer *render.Renderer
	logger   *zap.Logger
}

func NewAuthController(users storage.UserStore, sessions *session.Store, codec *session.Codec, renderer *render.Renderer, logger *zap.Logger) *AuthController {
	return &AuthController{
		users:    users,
		sessions: sessions,
		codec:    codec,
		renderer: renderer,
		logger:   logger,
	}
}

func (c *AuthController) SignupForm(w http.ResponseWriter, r *http.Request) error {
	c.renderer.HTML(w, http.StatusOK, "signup.tmpl", page(r, "Sign Up", nil))
	return nil
}

// establishSession rotates the session onto the authenticated user,
// destroys the pre-auth record, and re-issues the cookie. Must run before
// the redirect is written.
func (c *AuthController) establishSession(w http.ResponseWriter, r *http.Request, sess *session.Session, user *models.User) error {
	oldID := sess.ID
	sess.Login(user.ID.Hex(), user.Username)
	if err := c.sessions.Destroy(r.Context(), oldID); err != nil {
		c.logger.Warn("failed to destroy pre-auth session", zap.Error(err))
	}
	return c.codec.SetCookie(w, sess.ID)
}

func (c *AuthController) Signup(w http.ResponseWriter, r *http.Request) error {
	sess := session.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		return httperr.BadRequest("Invalid form payload")
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	email := strings.TrimSpace(strings.ToLower(r.PostFormValue("email")))
	password := r.PostFormValue("password")

	if username == "" || email == "" || password == "" {
		sess.FlashError("Username, email and password are all required")
		http.Redirect(w, r, "/signup", http.StatusFound)
		return nil
	}

	// Distinct messages for the two uniqueness violations.
	if _, err := c.users.FindByUsername(r.Context(), username); err == nil {
		sess.FlashError("Username already taken")
		http.Redirect(w, r, "/signup", http.StatusFound)
		return nil
	} else if err != storage.ErrNotFound {
		return err
	}
	if _, err := c.users.FindByEmail(r.Context(), email); err == nil {
		sess.FlashError("Email already registered")
		http.Redirect(w, r, "/signup", http.StatusFound)
		return nil
	} else if err != storage.ErrNotFound {
		return err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	user := &models.User{Username: username, Email: email, Password: hashed}
	if err := c.users.Create(r.Context(), user); err != nil {
		return err
	}

	if err := c.establishSession(w, r, sess, user); err != nil {
		return err
	}
	sess.FlashSuccess("Welcome to Wanderlust!")
	http.Redirect(w, r, "/listings", http.StatusFound)
	return nil
}

func (c *AuthController) LoginForm(w http.ResponseWriter, r *http.Request) error {
	c.renderer.HTML(w, http.StatusOK, "login.tmpl", page(r, "Log In", nil))
	return nil
}

func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) error {
	sess := session.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		return httperr.BadRequest("Invalid form payload")
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")

	user, err := c.users.FindByUsername(r.Context(), username)
	if err == storage.ErrNotFound || (err == nil && !auth.CheckPasswordHash(password, user.Password)) {
		sess.FlashError("Invalid username or password")
		http.Redirect(w, r, "/login", http.StatusFound)
		return nil
	}
	if err != nil {
		return err
	}

	target := sess.ConsumeReturnTo()
	if target == "" {
		target = "/listings"
	}

	if err := c.establishSession(w, r, sess, user); err != nil {
		return err
	}
	sess.FlashSuccess("Welcome back!")
	http.Redirect(w, r, target, http.StatusFound)
	return nil
}

func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) error {
	sess := session.FromContext(r.Context())

	oldID := sess.ID
	sess.Logout()
	if err := c.sessions.Destroy(r.Context(), oldID); err != nil {
		c.logger.Warn("failed to destroy session on logout", zap.Error(err))
	}
	if err := c.codec.SetCookie(w, sess.ID); err != nil {
		return err
	}

	sess.FlashSuccess("Logged you out!")
	http.Redirect(w, r, "/listings", http.StatusFound)
	return nil
}
