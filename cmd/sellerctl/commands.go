package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"seller-center/internal/middleware"
	"seller-center/internal/model"
)

func (c *cli) login(ctx context.Context, args []string) error {
	flags := subcommandFlags("login", c.stderr)
	port := flags.Int("port", 8765, "loopback port registered as the redirect URI")
	culture := flags.String("culture", "", "UI culture passed to the identity provider")
	timeout := flags.Duration("timeout", 5*time.Minute, "how long to wait for the browser")
	noBrowser := flags.Bool("no-browser", false, "print the sign-in URL without opening a browser")
	if err := flags.Parse(args); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", *port))
	if err != nil {
		return fmt.Errorf("listen for redirect: %w", err)
	}

	cfg := *c.cfg
	cfg.OIDCRedirectURI = "http://" + listener.Addr().String() + "/callback"
	cfg.OIDCResponseMode = "query"

	p, err := c.pipeline(&cfg)
	if err != nil {
		_ = listener.Close()
		return err
	}

	authURL, err := p.SignIn.AuthorizationURL(*culture)
	if err != nil {
		_ = listener.Close()
		return err
	}

	type result struct {
		identity *model.Identity
		err      error
	}
	done := make(chan result, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res result
		if providerErr := q.Get("error"); providerErr != "" {
			res.err = fmt.Errorf("sign-in rejected: %s %s", providerErr, q.Get("error_description"))
		} else {
			res.identity, res.err = p.SignIn.HandleCallback(context.WithoutCancel(r.Context()), q.Get("code"), q.Get("state"))
		}

		if res.err != nil {
			http.Error(w, "Sign-in failed. Return to the terminal for details.", http.StatusBadRequest)
		} else {
			_, _ = fmt.Fprintln(w, "Signed in. You can close this window.")
		}

		select {
		case done <- res:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = server.Serve(listener) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(c.stdout, "Open this URL to sign in:\n\n  %s\n\n", authURL)
	if !*noBrowser && c.openBrowser != nil {
		if err := c.openBrowser(authURL); err != nil {
			c.logger.Debug("could not open browser", "error", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	select {
	case <-waitCtx.Done():
		return fmt.Errorf("waiting for sign-in: %w", waitCtx.Err())
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		view := middleware.NewPrincipal(res.identity).View()
		if c.jsonOutput {
			return c.printJSON(view)
		}
		fmt.Fprintf(c.stdout, "Signed in as %s\n", displayName(view))
		return nil
	}
}

func (c *cli) whoami(ctx context.Context, args []string) error {
	if err := subcommandFlags("whoami", c.stderr).Parse(args); err != nil {
		return err
	}

	p, err := c.pipeline(nil)
	if err != nil {
		return err
	}

	identity := p.Store.Current(ctx)
	if identity == nil {
		return errors.New("not signed in; run `sellerctl login`")
	}

	view := middleware.NewPrincipal(identity).View()
	if c.jsonOutput {
		return c.printJSON(view)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Subject\t%s\n", view.Subject)
	fmt.Fprintf(w, "Name\t%s\n", view.Name)
	fmt.Fprintf(w, "Email\t%s\n", view.Email)
	fmt.Fprintf(w, "Email verified\t%t\n", view.EmailVerified)
	fmt.Fprintf(w, "Roles\t%s\n", strings.Join(view.Roles, ", "))
	fmt.Fprintf(w, "Token state\t%s\n", p.Coordinator.Assess(identity))
	if view.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires\t%s\n", time.Unix(*view.ExpiresAt, 0).Format(time.RFC3339))
	}
	return w.Flush()
}

func (c *cli) refresh(ctx context.Context, args []string) error {
	if err := subcommandFlags("refresh", c.stderr).Parse(args); err != nil {
		return err
	}

	p, err := c.pipeline(nil)
	if err != nil {
		return err
	}

	identity := p.Store.Current(ctx)
	if identity == nil {
		return errors.New("not signed in; run `sellerctl login`")
	}

	renewed, err := p.Coordinator.RefreshIfNeeded(ctx, identity)
	if err != nil {
		if errors.Is(err, model.ErrReauthenticationRequired) {
			return errors.New("session can no longer be renewed; run `sellerctl login`")
		}
		return err
	}

	state := p.Coordinator.Assess(renewed).String()
	if c.jsonOutput {
		return c.printJSON(map[string]any{"state": state, "session": middleware.NewPrincipal(renewed).View()})
	}
	if renewed.AccessToken != identity.AccessToken {
		fmt.Fprintln(c.stdout, "Access token renewed.")
	} else {
		fmt.Fprintln(c.stdout, "Access token is still valid.")
	}
	return nil
}

func (c *cli) logout(ctx context.Context, args []string) error {
	flags := subcommandFlags("logout", c.stderr)
	redirectTo := flags.String("redirect-to", "", "where the identity provider should send the browser afterwards")
	if err := flags.Parse(args); err != nil {
		return err
	}

	p, err := c.pipeline(nil)
	if err != nil {
		return err
	}

	logoutURL := p.SignIn.SignOutURL(ctx, *redirectTo)
	if c.jsonOutput {
		return c.printJSON(map[string]string{"logoutUrl": logoutURL})
	}
	fmt.Fprintf(c.stdout, "Signed out locally. To end the identity provider session, open:\n\n  %s\n", logoutURL)
	return nil
}

func (c *cli) categories(ctx context.Context, args []string) error {
	flags := subcommandFlags("categories", c.stderr)
	attributesOf := flags.String("attributes", "", "list the attributes of this category instead")
	if err := flags.Parse(args); err != nil {
		return err
	}

	p, err := c.pipeline(nil)
	if err != nil {
		return err
	}

	if *attributesOf != "" {
		attributes, err := p.Categories.ListAttributes(ctx, *attributesOf)
		if err != nil {
			return err
		}
		if c.jsonOutput {
			return c.printJSON(attributes)
		}
		w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tREQUIRED\tVALUES")
		for _, a := range attributes {
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", a.ID, a.Name, a.IsRequired, strings.Join(a.Values, ", "))
		}
		return w.Flush()
	}

	categories, err := p.Categories.ListCategories(ctx)
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return c.printJSON(categories)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	var walk func(list []model.Category, depth int)
	walk = func(list []model.Category, depth int) {
		for _, category := range list {
			fmt.Fprintf(w, "%s\t%s%s\n", category.ID, strings.Repeat("  ", depth), category.Name)
			walk(category.Children, depth+1)
		}
	}
	walk(categories, 0)
	return w.Flush()
}

func (c *cli) admins(ctx context.Context, args []string) error {
	flags := subcommandFlags("admins", c.stderr)
	page := flags.Int("page", 1, "page number")
	pageSize := flags.Int("page-size", 20, "admins per page")
	search := flags.String("search", "", "filter by name or email")
	if err := flags.Parse(args); err != nil {
		return err
	}

	p, err := c.pipeline(nil)
	if err != nil {
		return err
	}

	resp, err := p.Admins.ListAdmins(ctx, model.GetAdminsParams{Page: *page, PageSize: *pageSize, SearchTerm: *search})
	if err != nil {
		return err
	}
	if c.jsonOutput {
		return c.printJSON(resp)
	}

	w := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tACTIVE\tSYSTEM")
	for _, a := range resp.Admins {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%t\n", a.ID, a.FullName, a.Email, a.Status == model.AdminActive, a.IsSystemAdmin)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "\npage %d of %d (%d admins)\n", resp.Pagination.CurrentPage, resp.Pagination.TotalPages, resp.Pagination.TotalItems)
	return nil
}

func (c *cli) settings(ctx context.Context, args []string) error {
	flags := subcommandFlags("settings", c.stderr)
	culture := flags.Int("culture", -1, "set the culture code")
	theme := flags.Int("theme", -1, "set the theme code")
	if err := flags.Parse(args); err != nil {
		return err
	}

	p, err := c.pipeline(nil)
	if err != nil {
		return err
	}

	current, err := p.Users.GetSettings(ctx)
	if err != nil {
		return err
	}

	if flags.Changed("culture") || flags.Changed("theme") {
		if flags.Changed("culture") {
			current.Culture = *culture
		}
		if flags.Changed("theme") {
			current.Theme = *theme
		}
		if err := p.Users.SetSettings(ctx, current); err != nil {
			return err
		}
	}

	if c.jsonOutput {
		return c.printJSON(current)
	}
	fmt.Fprintf(c.stdout, "culture: %d\ntheme: %d\n", current.Culture, current.Theme)
	return nil
}

func displayName(view model.SessionView) string {
	switch {
	case view.Name != "" && view.Email != "":
		return view.Name + " <" + view.Email + ">"
	case view.Email != "":
		return view.Email
	case view.Name != "":
		return view.Name
	default:
		return view.Subject
	}
}
