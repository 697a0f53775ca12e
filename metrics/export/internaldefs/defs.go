package internaldefs

import (
	"github.com/MrEthical07/authcore"
)

// CounterDef ties an engine counter to its exporter-facing name and help.
type CounterDef struct {
	ID   authcore.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authcore.MetricSignupSuccess, Name: "authcore_signup_success_total", Help: "Successful signups."},
	{ID: authcore.MetricSignupDuplicate, Name: "authcore_signup_duplicate_total", Help: "Signups rejected for an already-taken email."},
	{ID: authcore.MetricSignupWeakPassword, Name: "authcore_signup_weak_password_total", Help: "Signups rejected by the password policy."},
	{ID: authcore.MetricLoginSuccess, Name: "authcore_login_success_total", Help: "Successful login attempts."},
	{ID: authcore.MetricLoginFailure, Name: "authcore_login_failure_total", Help: "Failed login attempts."},
	{ID: authcore.MetricLoginRateLimited, Name: "authcore_login_rate_limited_total", Help: "Login attempts rejected by the brute-force guard."},
	{ID: authcore.MetricLoginTwoFARequired, Name: "authcore_login_twofa_required_total", Help: "Logins deferred to the SMS second step."},
	{ID: authcore.MetricLoginTwoFASuccess, Name: "authcore_login_twofa_success_total", Help: "Successful SMS second-step logins."},
	{ID: authcore.MetricLoginTwoFAFailure, Name: "authcore_login_twofa_failure_total", Help: "Failed SMS second-step logins."},
	{ID: authcore.MetricRefreshSuccess, Name: "authcore_refresh_success_total", Help: "Successful refresh operations."},
	{ID: authcore.MetricRefreshFailure, Name: "authcore_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: authcore.MetricLogout, Name: "authcore_logout_total", Help: "Single-session logouts."},
	{ID: authcore.MetricLogoutAll, Name: "authcore_logout_all_total", Help: "All-device logouts."},
	{ID: authcore.MetricEmailVerificationSent, Name: "authcore_email_verification_sent_total", Help: "Email verification messages queued."},
	{ID: authcore.MetricEmailVerificationSuccess, Name: "authcore_email_verification_success_total", Help: "Successful email verifications."},
	{ID: authcore.MetricEmailVerificationFailure, Name: "authcore_email_verification_failure_total", Help: "Failed email verifications."},
	{ID: authcore.MetricMobileVerificationSent, Name: "authcore_mobile_verification_sent_total", Help: "SMS verification codes queued."},
	{ID: authcore.MetricMobileVerificationSuccess, Name: "authcore_mobile_verification_success_total", Help: "Successful mobile verifications."},
	{ID: authcore.MetricMobileVerificationFailure, Name: "authcore_mobile_verification_failure_total", Help: "Failed mobile verifications."},
	{ID: authcore.MetricAuthorizeDenied, Name: "authcore_authorize_denied_total", Help: "Authorization checks that denied a valid identity."},
	{ID: authcore.MetricUserBlocked, Name: "authcore_user_blocked_total", Help: "Accounts blocked by an admin."},
	{ID: authcore.MetricUserUnblocked, Name: "authcore_user_unblocked_total", Help: "Accounts unblocked by an admin."},
}
