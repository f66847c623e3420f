package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// Rule represents a class-to-plugin alert binding stored in the database.
// When a detection of ClassName at or above MinConfidence survives
// suppression, the named plugin action fires with the rule's config.
type Rule struct {
	ID              string
	ClassName       string
	MinConfidence   float64
	PluginName      string
	ActionName      string
	Config          json.RawMessage
	CooldownSeconds int
	Enabled         bool
	CreatedAt       time.Time
}

// RuleRepository provides CRUD operations for alert rules.
type RuleRepository struct {
	db *sql.DB
}

// Rules returns the rule repository for this store.
func (s *Store) Rules() *RuleRepository {
	return &RuleRepository{db: s.db}
}

// Create inserts a new rule into the database.
func (r *RuleRepository) Create(rule *Rule) error {
	rule.CreatedAt = time.Now()

	config := rule.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	_, err := r.db.Exec(
		`INSERT INTO alert_rules (id, class_name, min_confidence, plugin_name, action_name, config, cooldown_seconds, enabled, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.ClassName, rule.MinConfidence, rule.PluginName, rule.ActionName,
		string(config), rule.CooldownSeconds, rule.Enabled, rule.CreatedAt,
	)
	return err
}

// GetByID retrieves a rule by its ID.
func (r *RuleRepository) GetByID(id string) (*Rule, error) {
	rule := &Rule{}
	var config string
	var enabled int

	err := r.db.QueryRow(
		`SELECT id, class_name, min_confidence, plugin_name, action_name, config, cooldown_seconds, enabled, created_at
		 FROM alert_rules WHERE id = ?`,
		id,
	).Scan(&rule.ID, &rule.ClassName, &rule.MinConfidence, &rule.PluginName, &rule.ActionName,
		&config, &rule.CooldownSeconds, &enabled, &rule.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rule.Config = json.RawMessage(config)
	rule.Enabled = enabled != 0
	return rule, nil
}

// List retrieves all rules from the database.
func (r *RuleRepository) List() ([]*Rule, error) {
	rows, err := r.db.Query(
		`SELECT id, class_name, min_confidence, plugin_name, action_name, config, cooldown_seconds, enabled, created_at
		 FROM alert_rules ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRules(rows)
}

// ListEnabledByClass retrieves the enabled rules for a class name.
// Returns an empty slice if no rule watches the class.
func (r *RuleRepository) ListEnabledByClass(className string) ([]*Rule, error) {
	rows, err := r.db.Query(
		`SELECT id, class_name, min_confidence, plugin_name, action_name, config, cooldown_seconds, enabled, created_at
		 FROM alert_rules WHERE class_name = ? AND enabled = 1 ORDER BY created_at DESC`,
		className,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRules(rows)
}

func scanRules(rows *sql.Rows) ([]*Rule, error) {
	var rules []*Rule
	for rows.Next() {
		rule := &Rule{}
		var config string
		var enabled int

		err := rows.Scan(&rule.ID, &rule.ClassName, &rule.MinConfidence, &rule.PluginName,
			&rule.ActionName, &config, &rule.CooldownSeconds, &enabled, &rule.CreatedAt)
		if err != nil {
			return nil, err
		}

		rule.Config = json.RawMessage(config)
		rule.Enabled = enabled != 0
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rules, nil
}

// Update updates an existing rule in the database.
func (r *RuleRepository) Update(rule *Rule) error {
	config := rule.Config
	if config == nil {
		config = json.RawMessage("{}")
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	result, err := r.db.Exec(
		`UPDATE alert_rules SET class_name = ?, min_confidence = ?, plugin_name = ?, action_name = ?, config = ?, cooldown_seconds = ?, enabled = ?
		 WHERE id = ?`,
		rule.ClassName, rule.MinConfidence, rule.PluginName, rule.ActionName,
		string(config), rule.CooldownSeconds, enabled, rule.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a rule from the database by its ID.
func (r *RuleRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM alert_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
