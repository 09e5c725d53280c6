// Package converter provides conversion from ledger transactions to Beancount format.
package converter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Default counter accounts.
const (
	DefaultIncomeAccount   = "Income:Unclassified"
	DefaultExpensesAccount = "Expenses:Unclassified"
)

// AccountMapping represents a mapping between a ledger account name and a
// Beancount account name.
type AccountMapping struct {
	Ledger    string `yaml:"ledger"`
	Beancount string `yaml:"beancount"`
}

// AccountMappingConfig represents the complete account mapping configuration.
//
//	accounts:
//	  - ledger: checking
//	    beancount: Assets:Bank:Checking
//	income: Income:Salary
//	expenses: Expenses:Household
type AccountMappingConfig struct {
	Accounts []AccountMapping `yaml:"accounts"`
	Income   string           `yaml:"income"`
	Expenses string           `yaml:"expenses"`
}

// Mapper maps ledger account names to Beancount account names.
type Mapper struct {
	ledgerToBean map[string]string
	income       string
	expenses     string
}

// NewMapper creates a new Mapper from a YAML configuration file.
// A missing file yields a mapper with only the defaults.
func NewMapper(configPath string) (*Mapper, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return NewMapperFromConfig(AccountMappingConfig{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config AccountMappingConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return NewMapperFromConfig(config), nil
}

// NewMapperFromConfig creates a new Mapper from an in-memory configuration.
func NewMapperFromConfig(config AccountMappingConfig) *Mapper {
	m := &Mapper{
		ledgerToBean: make(map[string]string, len(config.Accounts)),
		income:       config.Income,
		expenses:     config.Expenses,
	}
	if m.income == "" {
		m.income = DefaultIncomeAccount
	}
	if m.expenses == "" {
		m.expenses = DefaultExpensesAccount
	}
	for _, mapping := range config.Accounts {
		m.ledgerToBean[mapping.Ledger] = mapping.Beancount
	}
	return m
}

// GetBeancountAccount returns the Beancount account for a ledger account name.
// Unmapped names become Assets:<Sanitized>.
func (m *Mapper) GetBeancountAccount(ledgerName string) string {
	if account := m.ledgerToBean[ledgerName]; account != "" {
		return account
	}
	return "Assets:" + sanitizeAccountName(ledgerName)
}

// IncomeAccount returns the counter account for deposits.
func (m *Mapper) IncomeAccount() string {
	return m.income
}

// ExpensesAccount returns the counter account for bills.
func (m *Mapper) ExpensesAccount() string {
	return m.expenses
}

// HasMapping checks if a mapping exists for a ledger account.
func (m *Mapper) HasMapping(ledgerName string) bool {
	_, ok := m.ledgerToBean[ledgerName]
	return ok
}

// GetAllMappings returns all mapped account names.
func (m *Mapper) GetAllMappings() map[string]string {
	result := make(map[string]string, len(m.ledgerToBean))
	for k, v := range m.ledgerToBean {
		result[k] = v
	}
	return result
}

// sanitizeAccountName turns a free-form name into a valid Beancount account
// component: words are capitalized and joined, anything but letters, digits
// and dashes is dropped.
func sanitizeAccountName(name string) string {
	var sb strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if upper {
				r = unicode.ToUpper(r)
				upper = false
			}
			sb.WriteRune(r)
		case r == '-' && sb.Len() > 0:
			sb.WriteRune(r)
		default:
			upper = true
		}
	}
	if sb.Len() == 0 {
		return "Unnamed"
	}
	return sb.String()
}
