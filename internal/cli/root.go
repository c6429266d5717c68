// Package cli implements surveyctl, a command line field client for the
// survey API: sign in, pick a survey and record markers.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"fieldsurvey/internal/client"
	"fieldsurvey/internal/questions"
	"fieldsurvey/internal/session"
	"fieldsurvey/platform/logger"
	"fieldsurvey/platform/validator"

	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in, run surveyctl login first")

// app is the state shared by every command of one invocation.
type app struct {
	cfg    Config
	log    *logger.Logger
	schema *questions.Schema

	sess *session.Store
	api  *client.Client
}

// NewRootCommand builds the surveyctl command tree. Diagnostics go to
// errOut; command output goes to the command's stdout.
func NewRootCommand(cfg Config, errOut io.Writer) *cobra.Command {
	root, _ := newRoot(cfg, errOut)
	return root
}

func newRoot(cfg Config, errOut io.Writer) (*cobra.Command, *app) {
	if errOut == nil {
		errOut = io.Discard
	}
	a := &app{
		cfg:    cfg,
		log:    logger.NewWithWriter(cfg.Env, errOut),
		schema: questions.DefaultSchema(validator.New()),
	}

	root := &cobra.Command{
		Use:           "surveyctl",
		Short:         "Record field survey observations from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
	}
	root.SetErr(errOut)

	root.AddCommand(
		a.signUpCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.forgotPasswordCmd(),
		a.resetPasswordCmd(),
		a.studiesCmd(),
		a.useCmd(),
		a.questionsCmd(),
		a.markersCmd(),
		a.exportCmd(),
	)
	return root, a
}

// Execute runs the command tree with args and reports failures on errOut.
func Execute(ctx context.Context, cfg Config, args []string, out, errOut io.Writer) int {
	root, a := newRoot(cfg, errOut)
	defer func() { _ = a.close() }()
	root.SetOut(out)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(errOut, "error:", userMessage(err))
		return 1
	}
	return 0
}

func (a *app) open() error {
	sess, err := session.Open(a.cfg.SessionPath)
	if err != nil {
		return err
	}
	a.sess = sess
	a.api = client.New(a.cfg.APIURL, client.WithHTTPClient(&http.Client{Timeout: a.cfg.Timeout}))
	return nil
}

func (a *app) close() error {
	if a.sess == nil {
		return nil
	}
	err := a.sess.Close()
	a.sess = nil
	return err
}

// signedIn loads the stored access token into the API client.
func (a *app) signedIn(ctx context.Context) (session.Session, error) {
	sess, err := a.sess.Load(ctx)
	if errors.Is(err, session.ErrNotFound) {
		return session.Session{}, errNotSignedIn
	}
	if err != nil {
		return session.Session{}, err
	}
	a.api.SetToken(sess.AccessToken)
	return sess, nil
}

func userMessage(err error) string {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, client.ErrUnauthorized):
		return "session expired or invalid, run surveyctl login"
	case errors.As(err, &apiErr):
		return apiErr.Message
	default:
		return err.Error()
	}
}

func passwordFlag(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("password"); p != "" {
		return p
	}
	return os.Getenv("SURVEYCTL_PASSWORD")
}

func (a *app) signUpCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create a volunteer account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.api.SignUp(cmd.Context(), email, passwordFlag(cmd)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account created for %s\n", email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().String("password", "", "account password (or SURVEYCTL_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			tokens, err := a.api.SignIn(ctx, email, passwordFlag(cmd))
			if errors.Is(err, client.ErrUnauthorized) {
				return errors.New("invalid email or password")
			}
			if err != nil {
				return err
			}
			if tokens.Email == "" {
				tokens.Email = email
			}
			if err := a.sess.Save(ctx, session.Session{
				Email:        tokens.Email,
				AccessToken:  tokens.AccessToken,
				RefreshToken: tokens.RefreshToken,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s\n", tokens.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().String("password", "", "account password (or SURVEYCTL_PASSWORD)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session and forget it locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := a.signedIn(ctx)
			if errors.Is(err, errNotSignedIn) {
				fmt.Fprintln(cmd.OutOrStdout(), "not signed in")
				return nil
			}
			if err != nil {
				return err
			}
			// The local session goes even when the server already forgot it.
			if err := a.api.SignOut(ctx, sess.RefreshToken); err != nil && !errors.Is(err, client.ErrUnauthorized) {
				a.log.Warn("sign out failed", "error", err)
			}
			if err := a.sess.Clear(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.signedIn(cmd.Context()); err != nil {
				return err
			}
			me, err := a.api.Me(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", me.Email, me.ID)
			return nil
		},
	}
}

func (a *app) forgotPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Mail a password reset link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.api.ForgotPassword(cmd.Context(), email); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "if the account exists a reset link is on its way")
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) resetPasswordCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Set a new password with a reset token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.api.ResetPassword(cmd.Context(), token, passwordFlag(cmd)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "password updated, sign in again")
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "reset token from the email")
	cmd.Flags().String("password", "", "new password (or SURVEYCTL_PASSWORD)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func (a *app) studiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "studies",
		Short: "List studies and their surveys",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := a.signedIn(cmd.Context()); err != nil {
				return err
			}
			studies, err := a.api.ListStudies(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, st := range studies {
				fmt.Fprintf(out, "%s  %s\n", st.ID, st.Name)
				for _, sv := range st.Surveys {
					fmt.Fprintf(out, "  %s  %s  [%s]\n", sv.ID, sv.Title, strings.Join(sv.Fields, ", "))
				}
			}
			return nil
		},
	}
}

func (a *app) useCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use SURVEY_ID",
		Short: "Select the survey markers are recorded in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.signedIn(ctx); err != nil {
				return err
			}
			survey, err := a.api.GetSurvey(ctx, args[0])
			if err != nil {
				return err
			}
			if err := a.sess.Set(ctx, session.KeyStudyID, survey.StudyID); err != nil {
				return err
			}
			if err := a.sess.Set(ctx, session.KeySurveyID, survey.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "using survey %s (%s)\n", survey.ID, survey.Title)
			return nil
		},
	}
}

func (a *app) questionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "questions",
		Short: "List the question schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, q := range a.schema.Questions {
				values := make([]string, len(q.Options))
				for i, o := range q.Options {
					values[i] = o.Value
				}
				fmt.Fprintf(out, "%s (%s): %s\n", q.Key, q.Type, strings.Join(values, ", "))
			}
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var surveyID string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the survey's data points to CSV and print the download link",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := a.signedIn(ctx); err != nil {
				return err
			}
			id, err := a.surveyID(ctx, surveyID)
			if err != nil {
				return err
			}
			link, err := a.api.Export(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d rows\n%s\n", link.Rows, link.URL)
			return nil
		},
	}
	cmd.Flags().StringVar(&surveyID, "survey", "", "survey id (defaults to the one selected with use)")
	return cmd
}

// surveyID returns flag, or the selected survey when flag is empty.
func (a *app) surveyID(ctx context.Context, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	id, err := a.sess.Get(ctx, session.KeySurveyID)
	if errors.Is(err, session.ErrNotFound) {
		return "", errors.New("no survey selected, run surveyctl use SURVEY_ID or pass --survey")
	}
	return id, err
}
