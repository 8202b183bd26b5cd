package modules

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SessionParams opens a session with the given credentials, or closes the
// session with the given id when State is absent.
type SessionParams struct {
	Username string `json:"-"`
	Password string `json:"-"`
	ID       string `json:"session_id,omitempty"`
	State    State  `json:"state,omitempty"`
}

func (p SessionParams) Validate() error {
	absent := p.State.absent()
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.When(!absent, validation.Required)),
		validation.Field(&p.Password, validation.When(!absent, validation.Required)),
		validation.Field(&p.ID, validation.When(absent, validation.Required)),
		validation.Field(&p.State, validation.In(StatePresent, StateAbsent)),
	)
}

// Session creates a new session, returning its id and token in
// Data["session"], or deletes an existing one. Creating is always a change.
func (r *Runner) Session(p SessionParams) (Result, error) {
	return r.run("session", func() (Result, error) {
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		api := r.client.API()

		if !p.State.absent() {
			info := map[string]string{"id": "", "key": ""}
			res, err := r.apply(msgChanged, func() error {
				session, err := api.CreateSession(p.Username, p.Password)
				if err != nil {
					return err
				}
				id, err := session.ID()
				if err != nil {
					return err
				}
				info = map[string]string{"id": id, "key": session.Token()}
				return nil
			})
			if err != nil {
				return res, err
			}
			res.Data = map[string]any{"session": info}
			return res, nil
		}

		svc, err := api.SessionService()
		if err != nil {
			return Result{}, err
		}
		session, err := svc.Session(p.ID)
		if err != nil {
			return Result{}, err
		}
		if session == nil {
			return r.apply(msgUnchanged)
		}
		return r.apply(msgChanged, func() error { return svc.DeleteSession(p.ID) })
	})
}
