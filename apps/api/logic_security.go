package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const adminSessionContextKey = "adminSession"

func containsString(list []string, value string) bool {
	for _, entry := range list {
		if entry == value {
			return true
		}
	}
	return false
}

func (a *App) createAdminSessionToken(session AdminSession) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"username": session.Username,
		"city":     session.City,
		"role":     session.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(adminSessionDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.AppSigningSecret))
}

func (a *App) verifyAdminSessionToken(tokenString string) (*AdminSession, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(a.cfg.AppSigningSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid session token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	username, _ := claims["username"].(string)
	role, _ := claims["role"].(string)
	city, _ := claims["city"].(string)
	if username == "" || !containsString(adminRoles, role) {
		return nil, fmt.Errorf("invalid session payload")
	}
	return &AdminSession{Username: username, City: city, Role: role}, nil
}

func (a *App) startAdminSession(c *gin.Context, session AdminSession) error {
	token, err := a.createAdminSessionToken(session)
	if err != nil {
		return err
	}
	secure := strings.EqualFold(a.cfg.Env, "production")
	c.SetCookie(adminCookieName, token, int(adminSessionDuration.Seconds()), "/", "", secure, true)
	return nil
}

func (a *App) clearAdminSession(c *gin.Context) {
	secure := strings.EqualFold(a.cfg.Env, "production")
	c.SetCookie(adminCookieName, "", -1, "/", "", secure, true)
}

// authenticateAdmin checks a username and password pair against the stored
// bcrypt hash. Unknown users and wrong passwords yield the same error.
func (a *App) authenticateAdmin(ctx context.Context, username, password string) (*AdminSession, error) {
	account, err := a.store.FindAdminByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	invalid := &apiError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "Invalid credentials"}
	if account == nil || account.PasswordHash == "" {
		return nil, invalid
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, invalid
	}
	return &AdminSession{Username: account.Username, City: account.City, Role: account.Role}, nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *App) requireAdminSessionHTML() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookieName)
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/admin_login")
			c.Abort()
			return
		}
		session, err := a.verifyAdminSessionToken(token)
		if err != nil {
			c.Redirect(http.StatusSeeOther, "/admin_login")
			c.Abort()
			return
		}
		c.Set(adminSessionContextKey, *session)
		c.Next()
	}
}

// optionalAdminSession attaches a valid session for page chrome but never
// blocks the request.
func (a *App) optionalAdminSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := c.Cookie(adminCookieName); err == nil {
			if session, verifyErr := a.verifyAdminSessionToken(token); verifyErr == nil {
				c.Set(adminSessionContextKey, *session)
			}
		}
		c.Next()
	}
}

func getAdminSession(c *gin.Context) (AdminSession, error) {
	value, ok := c.Get(adminSessionContextKey)
	if !ok {
		return AdminSession{}, fmt.Errorf("missing session")
	}
	session, ok := value.(AdminSession)
	if !ok {
		return AdminSession{}, fmt.Errorf("invalid session")
	}
	return session, nil
}
