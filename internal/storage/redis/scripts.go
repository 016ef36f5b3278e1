package redis

const (
	// appendEventScript atomically writes a usage event and its indexes
	appendEventScript = `
local event_key = KEYS[1]      -- meetingstt:usage:event:{id}
local window_set = KEYS[2]     -- meetingstt:usage:events:{provider}
local durations = KEYS[3]      -- meetingstt:usage:durations:{provider}

local id = ARGV[1]
local provider = ARGV[2]
local duration_seconds = ARGV[3]
local occurred_at = ARGV[4]
local score = tonumber(ARGV[5])

redis.call('HSET', event_key,
  'id', id,
  'provider', provider,
  'duration_seconds', duration_seconds,
  'occurred_at', occurred_at
)

-- Window index scored by occurred_at in microseconds
redis.call('ZADD', window_set, score, id)
redis.call('HSET', durations, id, duration_seconds)

return 'OK'
`

	// sumWindowScript sums durations for events scored in [min, max)
	sumWindowScript = `
local window_set = KEYS[1]     -- meetingstt:usage:events:{provider}
local durations = KEYS[2]      -- meetingstt:usage:durations:{provider}

local min_score = ARGV[1]
local max_score = '(' .. ARGV[2]

local ids = redis.call('ZRANGEBYSCORE', window_set, min_score, max_score)
local total = 0
for _, id in ipairs(ids) do
  local d = redis.call('HGET', durations, id)
  if d then
    total = total + tonumber(d)
  end
end

-- Return as string; Lua numbers are truncated to integers on reply
return tostring(total)
`

	// createMeetingScript atomically stores a meeting and its ordering index
	createMeetingScript = `
local meeting_key = KEYS[1]    -- meetingstt:meeting:{id}
local created_set = KEYS[2]    -- meetingstt:meetings:by_created

local id = ARGV[1]
local full_transcript = ARGV[2]
local summary = ARGV[3]
local created_at = ARGV[4]
local updated_at = ARGV[5]
local score = tonumber(ARGV[6])
local title = ARGV[7]
local has_title = ARGV[8]

redis.call('HSET', meeting_key,
  'id', id,
  'full_transcript', full_transcript,
  'summary', summary,
  'created_at', created_at,
  'updated_at', updated_at
)

if has_title == '1' then
  redis.call('HSET', meeting_key, 'title', title)
end

redis.call('ZADD', created_set, score, id)

return 'OK'
`

	// deleteMeetingScript removes a meeting and reports whether it existed
	deleteMeetingScript = `
local meeting_key = KEYS[1]    -- meetingstt:meeting:{id}
local created_set = KEYS[2]    -- meetingstt:meetings:by_created

local id = ARGV[1]

if redis.call('EXISTS', meeting_key) == 0 then
  redis.call('ZREM', created_set, id)
  return 0
end

redis.call('DEL', meeting_key)
redis.call('ZREM', created_set, id)

return 1
`
)
