// Command taskctl is a terminal client for the task manager API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"task_manager/internal/client"
	"task_manager/internal/domain"
)

const usage = `usage: taskctl [-server URL] <command> [flags]

commands:
  register -name N -email E -password P
  login -email E -password P
  logout
  whoami
  users
  projects
  project-create -name N [-description D]
  project-update -id ID [-name N] [-description D]
  project-delete -id ID
  tasks -project ID
  task-create -project ID -title T [-description D] [-status S] [-due YYYY-MM-DD]
  task-update -id ID [-title T] [-description D] [-status S] [-due YYYY-MM-DD|""]
  task-delete -id ID
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if client.IsUnauthorized(err) || errors.Is(err, client.ErrNoSession) {
			fmt.Fprintln(os.Stderr, "not logged in or session expired, run: taskctl login")
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func sessionPath() string {
	if dir := os.Getenv("TASKCTL_HOME"); dir != "" {
		return filepath.Join(dir, "session.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".taskctl", "session.json")
	}
	return filepath.Join(home, ".taskctl", "session.json")
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("taskctl", flag.ContinueOnError)
	server := global.String("server", envOr("TASKCTL_SERVER", "http://localhost:5000/api"), "API base URL")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	c, err := client.New(*server, client.WithSessionStore(client.FileSessionStore{Path: sessionPath()}))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, rest := global.Arg(0), global.Args()[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)

	switch cmd {
	case "register":
		name := fs.String("name", "", "display name")
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		res, err := c.Register(ctx, *name, *email, *password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "registered %s <%s> (%s)\n", res.Name, res.Email, res.ID)

	case "login":
		email := fs.String("email", "", "email")
		password := fs.String("password", "", "password")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		res, err := c.Login(ctx, *email, *password)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "logged in as %s <%s>\n", res.Name, res.Email)

	case "logout":
		if err := c.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(out, "logged out")

	case "whoami":
		u, err := c.Me(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s <%s> (%s)\n", u.Name, u.Email, u.ID)

	case "users":
		users, err := c.ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(out, "%s\t%s\t%s\n", u.ID, u.Name, u.Email)
		}

	case "projects":
		projects, err := c.ListProjects(ctx)
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Fprintln(out, "no projects")
		}
		for _, p := range projects {
			fmt.Fprintf(out, "%s\t%s\t%s\n", p.ID, p.Name, p.Description)
		}

	case "project-create":
		name := fs.String("name", "", "project name")
		desc := fs.String("description", "", "project description")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		p, err := c.CreateProject(ctx, *name, *desc)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created project %s\n", p.ID)

	case "project-update":
		id := fs.String("id", "", "project id")
		var upd client.ProjectUpdate
		fs.Func("name", "new name", func(s string) error { upd.Name = &s; return nil })
		fs.Func("description", "new description", func(s string) error { upd.Description = &s; return nil })
		if err := fs.Parse(rest); err != nil {
			return err
		}
		p, err := c.UpdateProject(ctx, *id, upd)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "updated project %s: %s\n", p.ID, p.Name)

	case "project-delete":
		id := fs.String("id", "", "project id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := c.DeleteProject(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(out, "project deleted")

	case "tasks":
		project := fs.String("project", "", "project id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		tasks, err := c.ListTasks(ctx, *project)
		if err != nil {
			return err
		}
		printBoard(out, client.GroupTasksByStatus(tasks))

	case "task-create":
		in := client.NewTask{}
		fs.StringVar(&in.ProjectID, "project", "", "project id")
		fs.StringVar(&in.Title, "title", "", "task title")
		fs.StringVar(&in.Description, "description", "", "task description")
		fs.StringVar(&in.Status, "status", "", "To-Do, In-Progress or Completed")
		fs.StringVar(&in.DueDate, "due", "", "due date")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		t, err := c.CreateTask(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "created task %s\n", t.ID)

	case "task-update":
		id := fs.String("id", "", "task id")
		var upd client.TaskUpdate
		fs.Func("title", "new title", func(s string) error { upd.Title = &s; return nil })
		fs.Func("description", "new description", func(s string) error { upd.Description = &s; return nil })
		fs.Func("status", "new status", func(s string) error { upd.Status = &s; return nil })
		fs.Func("due", "new due date, empty to clear", func(s string) error { upd.DueDate = &s; return nil })
		if err := fs.Parse(rest); err != nil {
			return err
		}
		t, err := c.UpdateTask(ctx, *id, upd)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "updated task %s: %s [%s]\n", t.ID, t.Title, t.Status)

	case "task-delete":
		id := fs.String("id", "", "task id")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if err := c.DeleteTask(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(out, "task removed")

	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

var columns = []domain.TaskStatus{domain.TaskStatusTodo, domain.TaskStatusInProgress, domain.TaskStatusCompleted}

func printBoard(out io.Writer, board map[domain.TaskStatus][]domain.Task) {
	for _, status := range columns {
		fmt.Fprintf(out, "== %s (%d)\n", status, len(board[status]))
		for _, t := range board[status] {
			due := ""
			if t.DueDate != nil {
				due = " due " + t.DueDate.Format("2006-01-02")
			}
			fmt.Fprintf(out, "  %s\t%s%s\n", t.ID, t.Title, due)
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
