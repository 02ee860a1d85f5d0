package sqlinline

const QSelectBrandVoiceForUser = `--sql 3eac1781-1737-4c62-a506-31a771b30692
select id::text, user_id::text, name, tone_adjectives, writing_samples, is_default, created_at, updated_at
from brand_voices
where id = $1::uuid
  and user_id = $2::uuid;
`

const QListBrandVoices = `--sql 9d41c6b2-58e3-4f0a-b7c1-2e6a0d93f4b8
select id::text, user_id::text, name, tone_adjectives, writing_samples, is_default, created_at, updated_at
from brand_voices
where user_id = $1::uuid
order by created_at desc, id;
`

// QInsertBrandVoice clears the previous default in the same statement when
// $6 is true.
const QInsertBrandVoice = `--sql 1f7a93e0-c4d2-4b6e-8a15-73e2b9c06d4a
with cleared as (
    update brand_voices
    set is_default = false,
        updated_at = now()
    where user_id = $2::uuid
      and $6::boolean
      and is_default
)
insert into brand_voices (id, user_id, name, tone_adjectives, writing_samples, is_default, created_at, updated_at)
values ($1::uuid, $2::uuid, $3::text, $4::text[], $5::text[], $6::boolean, now(), now())
returning created_at, updated_at;
`

const QUpdateBrandVoice = `--sql 6c0e2d84-a9b1-4f37-95d8-d8b4f1a27e63
with cleared as (
    update brand_voices
    set is_default = false,
        updated_at = now()
    where user_id = $2::uuid
      and id <> $1::uuid
      and $6::boolean
      and is_default
      and exists (select 1 from brand_voices where id = $1::uuid and user_id = $2::uuid)
)
update brand_voices
set name = $3::text,
    tone_adjectives = $4::text[],
    writing_samples = $5::text[],
    is_default = $6::boolean,
    updated_at = now()
where id = $1::uuid
  and user_id = $2::uuid
returning created_at, updated_at;
`

const QDeleteBrandVoice = `--sql b2e85f17-03d6-4c9a-a64e-5f19c7d0b382
delete from brand_voices
where id = $1::uuid
  and user_id = $2::uuid;
`
