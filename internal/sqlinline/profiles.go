package sqlinline

// QSelectOrCreateProfile returns the profile, creating it with the free
// allowance ($2) on first access.
const QSelectOrCreateProfile = `--sql ae2068ee-27b4-49a3-aab1-89fbdf8d9e2f
with inserted as (
    insert into user_profiles (id, credits_remaining, plan_type, created_at, updated_at)
    values ($1::uuid, $2::int, 'free', now(), now())
    on conflict (id) do nothing
    returning id::text, credits_remaining, plan_type, created_at, updated_at
)
select id, credits_remaining, plan_type, created_at, updated_at from inserted
union all
select id::text, credits_remaining, plan_type, created_at, updated_at
from user_profiles
where id = $1::uuid
  and not exists (select 1 from inserted)
limit 1;
`

const QDebitCredits = `--sql 6eaf0c9f-0661-41e1-a0bc-45dff10b5054
update user_profiles
set credits_remaining = credits_remaining - $2::int,
    updated_at = now()
where id = $1::uuid
  and credits_remaining >= $2::int
returning credits_remaining;
`

const QUpsertProfilePlan = `--sql ee6fbee8-76a3-427d-956a-cdbd76b786df
insert into user_profiles (id, credits_remaining, plan_type, created_at, updated_at)
values ($1::uuid, coalesce($3::int, $4::int), $2::text, now(), now())
on conflict (id) do update set
    plan_type = excluded.plan_type,
    credits_remaining = coalesce($3::int, user_profiles.credits_remaining),
    updated_at = now()
returning id::text, credits_remaining, plan_type, created_at, updated_at;
`

const QInsertUsageLog = `--sql 511e8d55-7147-44b2-8a5d-e01efba6619f
insert into usage_logs (id, user_id, action_type, product_count, metadata, created_at)
values (gen_random_uuid(), $1::uuid, $2::text, $3::int, coalesce($4::jsonb, '{}'::jsonb), now());
`
