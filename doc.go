// Package authcore is an embeddable account security engine: password
// hashing, JWT access tokens, a single-use refresh token registry, email
// and SMS verification, login brute-force protection with trusted devices,
// and role-based authorization.
//
// The engine is transport agnostic. It exposes plain methods (Signup,
// Login, Refresh, ...) that an HTTP or gRPC layer calls; package middleware
// provides an optional net/http adapter. State lives in two places: user
// records in a relational store behind the UserRepository interface
// (package postgres ships the reference implementation) and all volatile
// state (refresh tokens, verification codes, rate counters, trusted
// devices) in Redis.
//
// Build an engine with the builder:
//
//	engine, err := authcore.New().
//		WithRedis(rdb).
//		WithUsers(repo).
//		WithEmailSender(mailer).
//		WithSMSSender(texter).
//		Build()
//
// All engine methods are safe for concurrent use.
package authcore
