package cluster

import "context"

// Database is a thin factory over an implicit session obtained from the
// Session Manager collaborator. It carries no state beyond the database
// name, that implicit session, and a back-reference to the Cluster that
// produced it.
type Database struct {
	cluster *Cluster
	name    string
	session Session
}

// Database returns a facade over the named database, using an implicit
// session from the configured SessionManager. Database exists so a
// query/DML surface built on top has somewhere to attach.
func (c *Cluster) Database(name string) (*Database, error) {
	session, err := c.sessions.MakeImplicitSession(c)
	if err != nil {
		return nil, err
	}
	return &Database{cluster: c, name: name, session: session}, nil
}

// Name returns the database's name.
func (d *Database) Name() string {
	return d.name
}

// Send dispatches command against this database's implicit session,
// delegating to the owning Cluster's Command Dispatcher.
func (d *Database) Send(ctx context.Context, command any) <-chan Result {
	cmdCtx := NewCommandContext(command, d.session)
	return d.cluster.Send(ctx, cmdCtx)
}
