// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package email

import (
	"bytes"
	"strconv"
	"text/template"

	"github.com/HuebitsTechLearn/Artificial-Internet-of-Things/pkg/errors"
	"gopkg.in/gomail.v2"
)

var (
	errParseTemplate = errors.New("parse e-mail template failed")
	errExecTemplate  = errors.New("execute e-mail template failed")
	errSendMail      = errors.New("sending e-mail failed")
)

const defTemplate = `Severity: {{.Severity}}

{{.Content}}
`

type email struct {
	Severity string
	Content  string
}

// Config email agent configuration.
type Config struct {
	Host        string `env:"HOST"         envDefault:"localhost"`
	Port        string `env:"PORT"         envDefault:"25"`
	Username    string `env:"USERNAME"     envDefault:""`
	Password    string `env:"PASSWORD"     envDefault:""`
	FromAddress string `env:"FROM_ADDRESS" envDefault:""`
	FromName    string `env:"FROM_NAME"    envDefault:"AIoT Relay"`
	To          string `env:"TO"           envDefault:""`
}

// Agent for mailing.
type Agent struct {
	conf *Config
	tmpl *template.Template
	dial *gomail.Dialer
}

// New creates new email agent.
func New(c *Config) (*Agent, error) {
	a := &Agent{conf: c}
	port, err := strconv.Atoi(c.Port)
	if err != nil {
		return a, err
	}
	a.dial = gomail.NewDialer(c.Host, port, c.Username, c.Password)

	tmpl, err := template.New("alert").Parse(defTemplate)
	if err != nil {
		return a, errors.Wrap(errParseTemplate, err)
	}
	a.tmpl = tmpl
	return a, nil
}

// Send sends an e-mail with the given subject and body fields.
func (a *Agent) Send(to []string, subject, severity, content string) error {
	buff := new(bytes.Buffer)
	e := email{Severity: severity, Content: content}
	if err := a.tmpl.Execute(buff, e); err != nil {
		return errors.Wrap(errExecTemplate, err)
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", a.conf.FromAddress, a.conf.FromName)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buff.String())

	if err := a.dial.DialAndSend(m); err != nil {
		return errors.Wrap(errSendMail, err)
	}
	return nil
}
