package server

import (
	"fmt"
	"log"
	"net/netip"
	"sync"
	"time"
)

// RateLimiter 数据报速率限制器（按来源 IP）
type RateLimiter struct {
	requests map[netip.Addr]*clientRate
	mu       sync.Mutex

	// 配置
	maxRequestsPerSecond int           // 每秒最大数据报数
	maxRequestsPerMinute int           // 每分钟最大数据报数
	banDuration          time.Duration // 封禁时长
	cleanupInterval      time.Duration // 清理间隔

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// clientRate 来源速率记录
type clientRate struct {
	secondCount int       // 当前秒请求数
	minuteCount int       // 当前分钟请求数
	lastSecond  time.Time // 上次秒级计数时间
	lastMinute  time.Time // 上次分钟计数时间
	bannedUntil time.Time // 封禁到期时间
}

// NewRateLimiter 创建速率限制器
func NewRateLimiter(maxPerSecond, maxPerMinute int, banDuration time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests:             make(map[netip.Addr]*clientRate),
		maxRequestsPerSecond: maxPerSecond,
		maxRequestsPerMinute: maxPerMinute,
		banDuration:          banDuration,
		cleanupInterval:      5 * time.Minute,
		now:                  time.Now,
		stop:                 make(chan struct{}),
	}

	// 启动清理协程
	go rl.cleanup()

	return rl
}

// Allow 检查是否允许该来源的数据报
func (rl *RateLimiter) Allow(ip netip.Addr) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rate, exists := rl.requests[ip]

	if !exists {
		rl.requests[ip] = &clientRate{
			secondCount: 1,
			minuteCount: 1,
			lastSecond:  now,
			lastMinute:  now,
		}
		return true
	}

	// 检查是否被封禁
	if now.Before(rate.bannedUntil) {
		return false
	}

	if now.Sub(rate.lastSecond) >= time.Second {
		rate.secondCount = 0
		rate.lastSecond = now
	}
	if now.Sub(rate.lastMinute) >= time.Minute {
		rate.minuteCount = 0
		rate.lastMinute = now
	}

	rate.secondCount++
	rate.minuteCount++

	if rate.secondCount > rl.maxRequestsPerSecond || rate.minuteCount > rl.maxRequestsPerMinute {
		rate.bannedUntil = now.Add(rl.banDuration)
		log.Printf("⚠️ IP %s 因发包过于频繁被暂时封禁 %v", ip, rl.banDuration)
		return false
	}

	return true
}

// IsBanned 检查 IP 是否被封禁
func (rl *RateLimiter) IsBanned(ip netip.Addr) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rate, exists := rl.requests[ip]
	if !exists {
		return false
	}
	return rl.now().Before(rate.bannedUntil)
}

// Stop 停止清理协程
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// cleanup 清理过期记录
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.prune()
		}
	}
}

// prune 删除 10 分钟无请求且未封禁的记录
func (rl *RateLimiter) prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for ip, rate := range rl.requests {
		if now.Sub(rate.lastMinute) > 10*time.Minute && now.After(rate.bannedUntil) {
			delete(rl.requests, ip)
		}
	}
}

// --- IP 白名单/黑名单 ---

// IPFilter IP 过滤器
type IPFilter struct {
	whitelist map[netip.Addr]bool // 白名单
	blacklist map[netip.Addr]bool // 黑名单
	mu        sync.RWMutex
}

// NewIPFilter 创建 IP 过滤器，无法解析的地址记录日志后忽略
func NewIPFilter(whitelist, blacklist []string) *IPFilter {
	f := &IPFilter{
		whitelist: make(map[netip.Addr]bool),
		blacklist: make(map[netip.Addr]bool),
	}
	for _, ip := range whitelist {
		if err := f.AddToWhitelist(ip); err != nil {
			log.Printf("⚠️ 忽略白名单项: %v", err)
		}
	}
	for _, ip := range blacklist {
		if err := f.AddToBlacklist(ip); err != nil {
			log.Printf("⚠️ 忽略黑名单项: %v", err)
		}
	}
	return f
}

func parseIP(ip string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("invalid ip %q: %w", ip, err)
	}
	return addr.Unmap(), nil
}

// AddToWhitelist 添加到白名单
func (f *IPFilter) AddToWhitelist(ip string) error {
	addr, err := parseIP(ip)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.whitelist[addr] = true
	return nil
}

// AddToBlacklist 添加到黑名单
func (f *IPFilter) AddToBlacklist(ip string) error {
	addr, err := parseIP(ip)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blacklist[addr] = true
	return nil
}

// RemoveFromBlacklist 从黑名单移除
func (f *IPFilter) RemoveFromBlacklist(ip string) {
	addr, err := parseIP(ip)
	if err != nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blacklist, addr)
}

// IsAllowed 检查 IP 是否允许
func (f *IPFilter) IsAllowed(ip netip.Addr) bool {
	ip = ip.Unmap()

	f.mu.RLock()
	defer f.mu.RUnlock()

	// 如果有白名单且不在白名单中，拒绝
	if len(f.whitelist) > 0 && !f.whitelist[ip] {
		return false
	}
	return !f.blacklist[ip]
}

// --- 聊天速率限制 ---

// ChatRateLimiter 聊天速率限制器（按玩家 id），超限后进入冷却
type ChatRateLimiter struct {
	limits map[uint32]*chatRate
	mu     sync.Mutex

	maxPerSecond int
	maxPerMinute int
	cooldown     time.Duration

	now func() time.Time
}

type chatRate struct {
	secondCount   int
	minuteCount   int
	lastSecond    time.Time
	lastMinute    time.Time
	cooldownUntil time.Time
}

// NewChatRateLimiter 创建聊天速率限制器
func NewChatRateLimiter(maxPerSecond, maxPerMinute int, cooldown time.Duration) *ChatRateLimiter {
	return &ChatRateLimiter{
		limits:       make(map[uint32]*chatRate),
		maxPerSecond: maxPerSecond,
		maxPerMinute: maxPerMinute,
		cooldown:     cooldown,
		now:          time.Now,
	}
}

// AllowChat 检查玩家是否可以发言，拒绝时返回原因
func (cl *ChatRateLimiter) AllowChat(playerID uint32) (bool, string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	now := cl.now()
	rate, exists := cl.limits[playerID]
	if !exists {
		rate = &chatRate{lastSecond: now, lastMinute: now}
		cl.limits[playerID] = rate
	}

	if now.Before(rate.cooldownUntil) {
		return false, fmt.Sprintf("冷却中，还需 %v", rate.cooldownUntil.Sub(now).Round(time.Second))
	}

	if now.Sub(rate.lastSecond) >= time.Second {
		rate.secondCount = 0
		rate.lastSecond = now
	}
	if now.Sub(rate.lastMinute) >= time.Minute {
		rate.minuteCount = 0
		rate.lastMinute = now
	}

	rate.secondCount++
	rate.minuteCount++

	if rate.secondCount > cl.maxPerSecond {
		rate.cooldownUntil = now.Add(cl.cooldown)
		return false, fmt.Sprintf("发言太快，冷却 %v", cl.cooldown)
	}
	if rate.minuteCount > cl.maxPerMinute {
		rate.cooldownUntil = now.Add(cl.cooldown)
		return false, "本分钟发言次数已用完，休息一下"
	}
	return true, ""
}

// RemovePlayer 移除玩家记录
func (cl *ChatRateLimiter) RemovePlayer(playerID uint32) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	delete(cl.limits, playerID)
}

// Len 当前记录数
func (cl *ChatRateLimiter) Len() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.limits)
}
