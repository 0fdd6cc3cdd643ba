// Package accounts собирает список аккаунтов фермы.
//
// Источники: файлы *.session в папке сессий, accounts.yaml с настройками
// каждой сессии (user agent, прокси) и необязательный proxies.txt.
// Сессии без user agent получают случайный из встроенного списка,
// сессии без прокси — прокси из файла. Изменения сохраняются обратно в accounts.yaml.
package accounts

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/delay"
)

// SessionExt — расширение файлов сессий.
const SessionExt = ".session"

// Account — настройки одной сессии.
type Account struct {
	Session   string `yaml:"-"`
	UserAgent string `yaml:"user_agent"`
	Proxy     string `yaml:"proxy,omitempty"`
}

type fileFormat struct {
	Accounts map[string]*Account `yaml:"accounts"`
}

// Registry — accounts.yaml в памяти.
type Registry struct {
	mu       sync.Mutex
	path     string
	accounts map[string]*Account
}

// Load читает accounts.yaml. Отсутствующий файл — пустой реестр.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, accounts: make(map[string]*Account)}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
	}
	for name, acc := range f.Accounts {
		if acc == nil {
			acc = &Account{}
		}
		acc.Session = name
		r.accounts[name] = acc
	}
	return r, nil
}

// Save записывает реестр обратно в файл.
func (r *Registry) Save() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(fileFormat{Accounts: r.accounts})
	if err != nil {
		return fmt.Errorf("ошибка сериализации аккаунтов: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o600); err != nil {
		return fmt.Errorf("ошибка записи %s: %w", r.path, err)
	}
	return nil
}

// Get возвращает копию настроек сессии.
func (r *Registry) Get(session string) (Account, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acc, ok := r.accounts[session]
	if !ok {
		return Account{}, false
	}
	return *acc, true
}

// Prepare гарантирует запись для каждой сессии: добавляет недостающие,
// выдаёт user agent и прокси. Возвращает true, если реестр изменился.
//
// Параметры:
//   - sessions: имена найденных сессий
//   - proxies: прокси из файла (может быть пустым)
//   - perProxy: сколько сессий сажать на один прокси
//   - rnd: источник случайности для выбора user agent
func (r *Registry) Prepare(sessions, proxies []string, perProxy int, rnd delay.Provider) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if perProxy <= 0 {
		perProxy = 1
	}

	// Сколько сессий уже сидит на каждом прокси
	used := make(map[string]int)
	for _, acc := range r.accounts {
		if acc.Proxy != "" {
			used[acc.Proxy]++
		}
	}

	changed := false
	for _, name := range sessions {
		acc, ok := r.accounts[name]
		if !ok {
			acc = &Account{Session: name}
			r.accounts[name] = acc
			changed = true
		}
		if acc.UserAgent == "" {
			acc.UserAgent = userAgents[rnd.Intn(len(userAgents))]
			changed = true
		}
		if acc.Proxy == "" {
			if p := pickProxy(proxies, used, perProxy); p != "" {
				acc.Proxy = p
				used[p]++
				changed = true
				log.WithFields(log.Fields{"session": name, "proxy": p}).Info("Сессии назначен прокси из файла")
			}
		}
	}
	return changed
}

func pickProxy(proxies []string, used map[string]int, perProxy int) string {
	for _, p := range proxies {
		if used[p] < perProxy {
			return p
		}
	}
	return ""
}

// DiscoverSessions возвращает отсортированные имена сессий в папке dir.
func DiscoverSessions(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+SessionExt))
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска сессий: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), SessionExt))
	}
	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("%w в %s", common.ErrNoSessions, dir)
	}
	return names, nil
}

// SessionPath возвращает путь к файлу сессии.
func SessionPath(dir, session string) string {
	return filepath.Join(dir, session+SessionExt)
}

// LoadProxies читает proxies.txt: по строке на прокси, # — комментарий.
// Строка без схемы считается http-прокси. Отсутствующий файл — пустой список.
func LoadProxies(path string) ([]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, NormalizeProxy(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения %s: %w", path, err)
	}
	return out, nil
}

// NormalizeProxy приводит строку прокси к виду URL.
// Поддерживает host:port и host:port:user:pass.
func NormalizeProxy(line string) string {
	if strings.Contains(line, "://") {
		return line
	}
	parts := strings.Split(line, ":")
	if len(parts) == 4 {
		return fmt.Sprintf("http://%s:%s@%s:%s", parts[2], parts[3], parts[0], parts[1])
	}
	return "http://" + line
}
