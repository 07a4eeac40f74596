// Package cognito adapts Amazon Cognito user pools to identity.Provider.
package cognito

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/google/uuid"

	"github.com/dtroode/onboarding-server/internal/identity"
	"github.com/dtroode/onboarding-server/internal/model"
)

const (
	paramUsername           = "USERNAME"
	paramPassword           = "PASSWORD"
	paramSecretHash         = "SECRET_HASH"
	paramPreferredChallenge = "PREFERRED_CHALLENGE"
	responseEmailOTPCode    = "EMAIL_OTP_CODE"
	attributeSub            = "sub"
)

// Internal adapter interface to enable faking the user pool in tests.
type cognitoAPI interface {
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, in *cip.ResendConfirmationCodeInput, optFns ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	RespondToAuthChallenge(ctx context.Context, in *cip.RespondToAuthChallengeInput, optFns ...func(*cip.Options)) (*cip.RespondToAuthChallengeOutput, error)
	GetUser(ctx context.Context, in *cip.GetUserInput, optFns ...func(*cip.Options)) (*cip.GetUserOutput, error)
	AdminGetUser(ctx context.Context, in *cip.AdminGetUserInput, optFns ...func(*cip.Options)) (*cip.AdminGetUserOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

var _ cognitoAPI = (*cip.Client)(nil)

var _ identity.Provider = (*Client)(nil)

// Config addresses a user pool app client.
type Config struct {
	Region          string
	UserPoolID      string
	ClientID        string
	ClientSecret    string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Client talks to a Cognito user pool.
type Client struct {
	api          cognitoAPI
	userPoolID   string
	clientID     string
	clientSecret string
}

type Option func(*Client)

// WithUserPoolID enables looking up confirmed identities by username. It
// needs credentials allowed to call AdminGetUser on the pool.
func WithUserPoolID(id string) Option {
	return func(c *Client) {
		c.userPoolID = id
	}
}

// NewClient loads AWS configuration and creates a Cognito-backed provider.
// Static credentials and a custom endpoint are optional.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	api := cip.NewFromConfig(awsCfg, func(o *cip.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewClientWithAPI(api, cfg.ClientID, cfg.ClientSecret, WithUserPoolID(cfg.UserPoolID)), nil
}

// NewClientWithAPI allows injecting a fake API (used in tests).
func NewClientWithAPI(api cognitoAPI, clientID, clientSecret string, opts ...Option) *Client {
	c := &Client{
		api:          api,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ProbeSignIn(ctx context.Context, email, credential string) (identity.Trial, error) {
	params := map[string]string{
		paramUsername: email,
		paramPassword: credential,
	}
	c.sign(params, email)

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return identity.Trial{}, classify("probe", err)
	}
	if out.AuthenticationResult == nil {
		return identity.Trial{}, model.NewProviderError(model.ProviderChallengeRequired, "probe",
			fmt.Errorf("challenge %s", out.ChallengeName))
	}

	return identity.Trial{AccessToken: aws.ToString(out.AuthenticationResult.AccessToken)}, nil
}

// SignUp provisions an identity. An unconfirmed identity that already
// exists gets a fresh confirmation code instead.
func (c *Client) SignUp(ctx context.Context, email, credential string, attributes map[string]string) (identity.Challenge, error) {
	attrs := make([]types.AttributeType, 0, len(attributes))
	for name, value := range attributes {
		attrs = append(attrs, types.AttributeType{Name: aws.String(name), Value: aws.String(value)})
	}

	out, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId:       aws.String(c.clientID),
		Username:       aws.String(email),
		Password:       aws.String(credential),
		SecretHash:     c.secretHash(email),
		UserAttributes: attrs,
	})
	if err != nil {
		var exists *types.UsernameExistsException
		if errors.As(err, &exists) {
			return c.resend(ctx, email)
		}
		return identity.Challenge{}, classify("sign_up", err)
	}

	ch := identity.Challenge{
		Kind:    identity.ChallengeSignUpCode,
		Email:   email,
		Session: aws.ToString(out.Session),
	}
	if id, err := uuid.Parse(aws.ToString(out.UserSub)); err == nil {
		ch.IdentityID = id
	}
	return ch, nil
}

func (c *Client) resend(ctx context.Context, email string) (identity.Challenge, error) {
	_, err := c.api.ResendConfirmationCode(ctx, &cip.ResendConfirmationCodeInput{
		ClientId:   aws.String(c.clientID),
		Username:   aws.String(email),
		SecretHash: c.secretHash(email),
	})
	if err != nil {
		var notAuthorized *types.NotAuthorizedException
		if errors.As(err, &notAuthorized) {
			// Resend is refused for confirmed users.
			return identity.Challenge{}, model.NewProviderError(model.ProviderSignUpConflict, "sign_up", err)
		}
		return identity.Challenge{}, classify("sign_up", err)
	}

	return identity.Challenge{Kind: identity.ChallengeSignUpCode, Email: email}, nil
}

func (c *Client) SignIn(ctx context.Context, email string, factor identity.Factor) (identity.SignInResult, error) {
	params := map[string]string{
		paramUsername:           email,
		paramPreferredChallenge: string(factor),
	}
	c.sign(params, email)

	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return identity.SignInResult{}, classify("sign_in", err)
	}

	switch out.ChallengeName {
	case types.ChallengeNameTypeEmailOtp:
		return identity.SignInResult{
			Next: identity.StepConfirmSignInCode,
			Challenge: identity.Challenge{
				Kind:    identity.ChallengeSignInCode,
				Email:   email,
				Session: aws.ToString(out.Session),
			},
		}, nil
	case types.ChallengeNameTypeSelectChallenge:
		return identity.SignInResult{Next: identity.StepContinueFirstFactorSelection}, nil
	default:
		return identity.SignInResult{}, model.NewProviderError(model.ProviderOther, "sign_in",
			fmt.Errorf("unexpected challenge %q", out.ChallengeName))
	}
}

func (c *Client) ConfirmChallenge(ctx context.Context, challenge identity.Challenge, code string) (identity.Identity, error) {
	switch challenge.Kind {
	case identity.ChallengeSignUpCode:
		return c.confirmSignUp(ctx, challenge, code)
	case identity.ChallengeSignInCode:
		return c.confirmSignIn(ctx, challenge, code)
	default:
		return identity.Identity{}, model.NewProviderError(model.ProviderOther, "confirm",
			fmt.Errorf("unknown challenge kind %d", challenge.Kind))
	}
}

func (c *Client) confirmSignUp(ctx context.Context, challenge identity.Challenge, code string) (identity.Identity, error) {
	out, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(challenge.Email),
		ConfirmationCode: aws.String(code),
		SecretHash:       c.secretHash(challenge.Email),
		Session:          optional(challenge.Session),
	})
	if err != nil {
		return identity.Identity{}, classify("confirm", err)
	}

	// A resent code carries no sub. Look it up by username when the pool is
	// known, otherwise sign in with the session ConfirmSignUp hands back.
	switch {
	case challenge.IdentityID != uuid.Nil:
		return identity.Identity{ID: challenge.IdentityID, Email: challenge.Email}, nil
	case c.userPoolID != "":
		return c.lookup(ctx, challenge.Email)
	case aws.ToString(out.Session) == "":
		return identity.Identity{}, model.NewProviderError(model.ProviderOther, "confirm",
			errors.New("confirmed identity has no sign-in session"))
	}

	params := map[string]string{paramUsername: challenge.Email}
	c.sign(params, challenge.Email)

	auth, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
		Session:        out.Session,
	})
	if err != nil {
		return identity.Identity{}, classify("confirm", err)
	}
	if auth.AuthenticationResult == nil {
		return identity.Identity{}, model.NewProviderError(model.ProviderOther, "confirm",
			fmt.Errorf("unexpected challenge %q", auth.ChallengeName))
	}

	return c.whoami(ctx, aws.ToString(auth.AuthenticationResult.AccessToken), challenge.Email)
}

func (c *Client) confirmSignIn(ctx context.Context, challenge identity.Challenge, code string) (identity.Identity, error) {
	responses := map[string]string{
		paramUsername:        challenge.Email,
		responseEmailOTPCode: code,
	}
	c.sign(responses, challenge.Email)

	out, err := c.api.RespondToAuthChallenge(ctx, &cip.RespondToAuthChallengeInput{
		ClientId:           aws.String(c.clientID),
		ChallengeName:      types.ChallengeNameTypeEmailOtp,
		Session:            aws.String(challenge.Session),
		ChallengeResponses: responses,
	})
	if err != nil {
		return identity.Identity{}, classify("confirm", err)
	}
	if out.AuthenticationResult == nil {
		// Cognito re-issues the challenge with a new session after a wrong
		// code. The old session is spent, so the next attempt answers the new one.
		err := model.NewProviderError(model.ProviderInvalidCode, "confirm",
			fmt.Errorf("challenge %s repeated", out.ChallengeName))
		if aws.ToString(out.Session) == "" {
			return identity.Identity{}, err
		}
		next := challenge
		next.Session = aws.ToString(out.Session)
		return identity.Identity{}, &identity.RetryError{Challenge: next, Err: err}
	}

	return c.whoami(ctx, aws.ToString(out.AuthenticationResult.AccessToken), challenge.Email)
}

func (c *Client) whoami(ctx context.Context, accessToken, email string) (identity.Identity, error) {
	out, err := c.api.GetUser(ctx, &cip.GetUserInput{AccessToken: aws.String(accessToken)})
	if err != nil {
		return identity.Identity{}, classify("get_user", err)
	}
	return subject("get_user", out.UserAttributes, email)
}

func (c *Client) lookup(ctx context.Context, email string) (identity.Identity, error) {
	out, err := c.api.AdminGetUser(ctx, &cip.AdminGetUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(email),
	})
	if err != nil {
		return identity.Identity{}, classify("get_user", err)
	}
	return subject("get_user", out.UserAttributes, email)
}

func subject(op string, attrs []types.AttributeType, email string) (identity.Identity, error) {
	for _, attr := range attrs {
		if aws.ToString(attr.Name) != attributeSub {
			continue
		}
		id, err := uuid.Parse(aws.ToString(attr.Value))
		if err != nil {
			return identity.Identity{}, model.NewProviderError(model.ProviderOther, op,
				fmt.Errorf("malformed sub: %w", err))
		}
		return identity.Identity{ID: id, Email: email}, nil
	}

	return identity.Identity{}, model.NewProviderError(model.ProviderOther, op, errors.New("sub attribute missing"))
}

func (c *Client) SignOut(ctx context.Context, trial identity.Trial) error {
	_, err := c.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(trial.AccessToken)})
	if err != nil {
		return classify("sign_out", err)
	}
	return nil
}

func (c *Client) sign(params map[string]string, username string) {
	if h := c.secretHash(username); h != nil {
		params[paramSecretHash] = *h
	}
}

// secretHash is required when the app client has a secret.
func (c *Client) secretHash(username string) *string {
	if c.clientSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(c.clientSecret))
	mac.Write([]byte(username + c.clientID))
	return aws.String(base64.StdEncoding.EncodeToString(mac.Sum(nil)))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

// classify maps Cognito failures onto provider error kinds.
func classify(op string, err error) error {
	kind := model.ProviderOther

	var (
		userNotFound    *types.UserNotFoundException
		notAuthorized   *types.NotAuthorizedException
		usernameExists  *types.UsernameExistsException
		codeMismatch    *types.CodeMismatchException
		tooManyFailed   *types.TooManyFailedAttemptsException
		limitExceeded   *types.LimitExceededException
		tooManyRequests *types.TooManyRequestsException
		notConfirmed    *types.UserNotConfirmedException
		resetRequired   *types.PasswordResetRequiredException
		internalError   *types.InternalErrorException
		sendErr         *smithyhttp.RequestSendError
		netErr          net.Error
	)

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = model.ProviderUnavailable
	case errors.As(err, &sendErr), errors.As(err, &netErr):
		kind = model.ProviderUnavailable
	case errors.As(err, &internalError), errors.As(err, &tooManyRequests):
		kind = model.ProviderUnavailable
	case errors.As(err, &userNotFound):
		kind = model.ProviderNotFound
	case errors.As(err, &usernameExists):
		kind = model.ProviderSignUpConflict
	case errors.As(err, &codeMismatch):
		kind = model.ProviderInvalidCode
	case errors.As(err, &tooManyFailed):
		kind = model.ProviderTooManyAttempts
	case errors.As(err, &notConfirmed), errors.As(err, &resetRequired):
		kind = model.ProviderChallengeRequired
	case errors.As(err, &notAuthorized), errors.As(err, &limitExceeded):
		// An exhausted OTP session is reported as NotAuthorized.
		if op == "confirm" {
			kind = model.ProviderTooManyAttempts
		} else {
			kind = model.ProviderWrongCredential
		}
	}

	return model.NewProviderError(kind, op, err)
}
